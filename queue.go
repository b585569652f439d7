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

package regio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/internal/apierror"
	redis_db "github.com/regiohub/regio/internal/redis-db"
)

// Task types handled by the workers process.
const (
	TaskWebhook       = "regio:webhook"
	TaskRequestExpiry = "regio:request_expiry"
	TaskMonthlyFee    = "regio:monthly_fee"
	TaskDemurrage     = "regio:demurrage"
)

// Queue wraps the asynq client used to hand work to the workers process.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// expiryPayload is the body of a TaskRequestExpiry task.
type expiryPayload struct {
	RequestID string    `json:"request_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisConnOpt converts the configured redis DSN into asynq connection options.
//
// Parameters:
// - conf *config.Configuration: The configuration holding the redis DSN.
//
// Returns:
// - asynq.RedisClientOpt: Options shared by the client, server, scheduler and monitor.
// - error: An error if the DSN cannot be parsed.
func RedisConnOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns, conf.Redis.SkipTLSVerify)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Username:  redisOption.Username,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}, nil
}

// NewQueue initializes a new Queue instance with the provided configuration.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
// - error: An error if the redis DSN is invalid.
func NewQueue(conf *config.Configuration) (*Queue, error) {
	queueOptions, err := RedisConnOpt(conf)
	if err != nil {
		return nil, err
	}
	return &Queue{
		Client:    asynq.NewClient(queueOptions),
		Inspector: asynq.NewInspector(queueOptions),
	}, nil
}

// Close releases the client and inspector connections.
func (q *Queue) Close() error {
	return errors.Join(q.Client.Close(), q.Inspector.Close())
}

func expiryTaskID(requestID string) string {
	return fmt.Sprintf("expiry_%s", requestID)
}

// EnqueueRequestExpiry schedules the automatic cancellation of a payment request.
// Scheduling the same request twice is not an error.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - requestID string: The ID of the payment request.
// - expiresAt time.Time: When the request should be cancelled.
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) EnqueueRequestExpiry(ctx context.Context, requestID string, expiresAt time.Time) error {
	ctx, span := tracer.Start(ctx, "Queuing request expiry")
	defer span.End()

	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(expiryPayload{RequestID: requestID, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskRequestExpiry, payload,
		asynq.TaskID(expiryTaskID(requestID)),
		asynq.Queue(cfg.Queue.ExpiryQueue),
		asynq.ProcessAt(expiresAt),
	)
	info, err := q.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		span.RecordError(err)
		logrus.Error(err, info)
		return err
	}
	logrus.Infof(" [*] Successfully enqueued request expiry: %s at %s", requestID, expiresAt.Format(time.RFC3339))
	return nil
}

// NewMaintenanceTask builds a fee or demurrage task for the maintenance queue.
//
// Parameters:
// - taskType string: TaskMonthlyFee or TaskDemurrage.
// - queue string: The maintenance queue name.
//
// Returns:
// - *asynq.Task: The task, ready to enqueue or register with a scheduler.
func NewMaintenanceTask(taskType, queue string) (*asynq.Task, error) {
	if taskType != TaskMonthlyFee && taskType != TaskDemurrage {
		return nil, fmt.Errorf("unknown maintenance task %q", taskType)
	}
	return asynq.NewTask(taskType, nil, asynq.Queue(queue), asynq.MaxRetry(3)), nil
}

// EnqueueMaintenance queues a one-off fee or demurrage run.
func (q *Queue) EnqueueMaintenance(ctx context.Context, taskType string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	task, err := NewMaintenanceTask(taskType, cfg.Queue.MaintenanceQueue)
	if err != nil {
		return err
	}
	_, err = q.Client.EnqueueContext(ctx, task)
	return err
}

// ProcessRequestExpiry cancels an expired payment request on behalf of the system.
func (r *Regio) ProcessRequestExpiry(ctx context.Context, task *asynq.Task) error {
	var payload expiryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Error(err)
		return fmt.Errorf("invalid expiry payload: %v: %w", err, asynq.SkipRetry)
	}
	request, err := r.ExpirePaymentRequest(ctx, payload.RequestID)
	if apierror.Is(err, apierror.ErrNotFound) {
		logrus.Warnf("expiry for unknown request %s dropped", payload.RequestID)
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		return err
	}
	logrus.Infof(" [*] Request expiry processed %s, status %s", request.RequestID, request.Status)
	return nil
}

// ProcessMonthlyFee runs the monthly fee collection from a worker.
func (r *Regio) ProcessMonthlyFee(ctx context.Context, _ *asynq.Task) error {
	result, err := r.CollectMonthlyFees(ctx)
	if err != nil {
		return err
	}
	logrus.Infof(" [*] Monthly fees collected: %d charged, %d minutes", result.Charged, result.TotalMinutes)
	return nil
}

// ProcessDemurrageTask runs demurrage from a worker, as of the task's run time.
func (r *Regio) ProcessDemurrageTask(ctx context.Context, _ *asynq.Task) error {
	result, err := r.ProcessDemurrage(ctx, r.now())
	if err != nil {
		return err
	}
	logrus.Infof(" [*] Demurrage processed: %d charged, %d minutes", result.Charged, result.TotalMinutes)
	return nil
}
