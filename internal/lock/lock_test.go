/*
Copyright 2024 Regio Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package redlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_Lock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectSetNX("account:alice", "holder-1", 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Lock_Held(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectSetNX("account:alice", "holder-1", 5*time.Second).SetVal(false)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock for key account:alice is already held")
	assert.True(t, errors.Is(err, ErrLockHeld))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectEval(unlockScript, []string{"account:alice"}, "holder-1").SetVal(int64(1))

	err := locker.Unlock(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_Unlock_NotHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectEval(unlockScript, []string{"account:alice"}, "holder-1").SetVal(int64(0))

	err := locker.Unlock(context.Background())
	assert.EqualError(t, err, "unlock failed, either lock expired or you're not the lock holder for key account:alice")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_ExtendLock(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectEval(extendScript, []string{"account:alice"}, "holder-1", "5000").SetVal(int64(1))
	assert.NoError(t, locker.ExtendLock(context.Background(), 5*time.Second))

	mock.ExpectEval(extendScript, []string{"account:alice"}, "holder-1", "5000").SetVal(int64(0))
	err := locker.ExtendLock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock extension failed for key account:alice, either lock expired or you're not the holder")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_WaitLock_Success(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectSetNX("account:alice", "holder-1", 5*time.Second).SetVal(true)

	err := locker.WaitLock(context.Background(), 5*time.Second, 2*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocker_WaitLock_TimesOutWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set("account:alice", "someone-else"))

	locker := NewLocker(client, "account:alice", "holder-1")
	err := locker.WaitLock(context.Background(), 5*time.Second, 300*time.Millisecond)
	assert.EqualError(t, err, "failed to acquire lock for key account:alice within the wait timeout: lock wait timed out")
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestLocker_WaitLock_AcquiresAfterRelease(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	first := NewLocker(client, "account:alice", "holder-1")
	require.NoError(t, first.Lock(context.Background(), 5*time.Second))

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = first.Unlock(context.Background())
	}()

	second := NewLocker(client, "account:alice", "holder-2")
	assert.NoError(t, second.WaitLock(context.Background(), 5*time.Second, 2*time.Second))
}

func TestLocker_WaitLock_RedisErrorStopsWaiting(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "account:alice", "holder-1")

	mock.ExpectSetNX("account:alice", "holder-1", 5*time.Second).SetErr(errors.New("connection refused"))

	err := locker.WaitLock(context.Background(), 5*time.Second, 2*time.Second)
	assert.EqualError(t, err, "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireAll_SortsAndDeduplicates(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectSetNX("account:alice", "op-1", 5*time.Second).SetVal(true)
	mock.ExpectSetNX("account:bob", "op-1", 5*time.Second).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"account:bob"}, "op-1").SetVal(int64(1))
	mock.ExpectEval(unlockScript, []string{"account:alice"}, "op-1").SetVal(int64(1))

	m, err := AcquireAll(context.Background(), db, []string{"account:bob", "account:alice", "account:bob"}, "op-1", 5*time.Second, time.Second)
	require.NoError(t, err)
	assert.Len(t, m.lockers, 2)

	m.Release(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireAll_ReleasesOnFailure(t *testing.T) {
	db, mock := redismock.NewClientMock()

	mock.ExpectSetNX("account:alice", "op-1", 5*time.Second).SetVal(true)
	mock.ExpectSetNX("account:bob", "op-1", 5*time.Second).SetErr(errors.New("boom"))
	mock.ExpectEval(unlockScript, []string{"account:alice"}, "op-1").SetVal(int64(1))

	_, err := AcquireAll(context.Background(), db, []string{"account:alice", "account:bob"}, "op-1", 5*time.Second, time.Second)
	assert.EqualError(t, err, "boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireAll_OverlappingSetsDoNotDeadlock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	done := make(chan error, 2)
	run := func(value string, keys []string) {
		m, err := AcquireAll(ctx, client, keys, value, 5*time.Second, 3*time.Second)
		if err == nil {
			time.Sleep(20 * time.Millisecond)
			m.Release(ctx)
		}
		done <- err
	}
	go run("op-1", []string{"account:a", "account:b"})
	go run("op-2", []string{"account:b", "account:a"})

	assert.NoError(t, <-done)
	assert.NoError(t, <-done)
}

func TestMultiLock_Extend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	m, err := AcquireAll(ctx, client, []string{"account:b", "account:a"}, "op-1", time.Second, time.Second)
	require.NoError(t, err)

	require.NoError(t, m.Extend(ctx, 10*time.Second))
	assert.Equal(t, 10*time.Second, mr.TTL("account:a"))
	assert.Equal(t, 10*time.Second, mr.TTL("account:b"))

	mr.FastForward(11 * time.Second)
	assert.Error(t, m.Extend(ctx, 10*time.Second))
}
