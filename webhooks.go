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
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/regiohub/regio/config"
	"github.com/regiohub/regio/internal/notification"
	"github.com/regiohub/regio/internal/request"
)

const (
	EventAccountCreated          = "account.created"
	EventTransactionPosted       = "transaction.posted"
	EventPaymentRequestCreated   = "payment_request.created"
	EventPaymentRequestApproved  = "payment_request.approved"
	EventPaymentRequestRejected  = "payment_request.rejected"
	EventPaymentRequestCancelled = "payment_request.cancelled"
	EventPaymentRequestDisputed  = "payment_request.disputed"
	EventDisputeConsent          = "dispute.consent"
	EventDisputeResolved         = "dispute.resolved"
)

// NewWebhook represents the structure of a webhook notification.
type NewWebhook struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
}

// EnqueueWebhook queues a webhook notification for delivery by the workers.
// Nothing is queued when no webhook URL is configured.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - hook NewWebhook: The webhook notification data to enqueue.
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) EnqueueWebhook(ctx context.Context, hook NewWebhook) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := json.Marshal(hook)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskWebhook, payload, asynq.Queue(conf.Queue.WebhookQueue), asynq.MaxRetry(5))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		logrus.Error(err, info)
		return err
	}
	return nil
}

// sendWebhook publishes event without failing the operation that raised it.
func (r *Regio) sendWebhook(ctx context.Context, event string, payload interface{}) {
	hook := NewWebhook{Event: event, Payload: payload, CreatedAt: r.now().UTC()}
	if err := r.queue.EnqueueWebhook(context.WithoutCancel(ctx), hook); err != nil {
		logrus.WithError(err).Warnf("could not queue %s webhook", event)
	}
}

// WebhookSender adapts the queue to notification.WebhookSender so system errors
// reach the same webhook endpoint.
func (r *Regio) WebhookSender() notification.WebhookSender {
	return func(event string, payload interface{}) error {
		return r.queue.EnqueueWebhook(context.Background(), NewWebhook{Event: event, Payload: payload, CreatedAt: r.now().UTC()})
	}
}

// ProcessWebhook processes a webhook notification task from the queue.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - task *asynq.Task: The task containing the webhook notification data.
//
// Returns:
// - error: An error if the webhook delivery fails, so asynq retries it.
func ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	if conf.Notification.Webhook.Url == "" {
		return nil
	}

	var payload NewWebhook
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logrus.Errorf("Error unmarshaling task payload: %v", err)
		return err
	}
	logrus.Infof("Processing webhook: %s", payload.Event)

	if _, err := request.PostJSON(ctx, conf.Notification.Webhook.Url, conf.Notification.Webhook.Headers, payload, nil); err != nil {
		logrus.WithError(err).Errorf("webhook %s delivery failed", payload.Event)
		return err
	}
	return nil
}
