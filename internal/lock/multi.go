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
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// MultiLock holds several keys at once. Keys are always taken in sorted order so
// two callers locking overlapping sets cannot deadlock.
type MultiLock struct {
	lockers []*Locker
}

// AcquireAll waits for every key in turn. On failure the keys already taken are
// released before returning.
func AcquireAll(ctx context.Context, client redis.UniversalClient, keys []string, value string, lockTimeout, waitTimeout time.Duration) (*MultiLock, error) {
	sorted := uniqueSorted(keys)
	m := &MultiLock{lockers: make([]*Locker, 0, len(sorted))}
	for _, key := range sorted {
		l := NewLocker(client, key, value)
		if err := l.WaitLock(ctx, lockTimeout, waitTimeout); err != nil {
			m.Release(ctx)
			return nil, err
		}
		m.lockers = append(m.lockers, l)
	}
	return m, nil
}

// Extend pushes the expiry of every held key to extension from now. It fails
// when any key has already expired or changed hands.
func (m *MultiLock) Extend(ctx context.Context, extension time.Duration) error {
	for _, l := range m.lockers {
		if err := l.ExtendLock(ctx, extension); err != nil {
			return err
		}
	}
	return nil
}

// Release unlocks in reverse order. Failures are logged: an expired lock has
// nothing left to release.
func (m *MultiLock) Release(ctx context.Context) {
	for i := len(m.lockers) - 1; i >= 0; i-- {
		if err := m.lockers[i].Unlock(ctx); err != nil {
			logrus.Errorf("lock error: %v", err)
		}
	}
	m.lockers = nil
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
