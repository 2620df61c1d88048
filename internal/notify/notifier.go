// Package notify turns domain events into customer emails. Events are
// handed to asynq so a slow mail relay never blocks a checkout or a
// webhook response; the worker process drains the queue.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// TaskEmailNotification is the asynq task type for outgoing emails.
const TaskEmailNotification = "notify:email"

// QueueNotifications is the asynq queue emails land on.
const QueueNotifications = "notifications"

// notifiedTopics lists the events that produce a customer email.
var notifiedTopics = map[string]bool{
	events.TopicOrderCreated:   true,
	events.TopicOrderPaid:      true,
	events.TopicOrderCancelled: true,
	events.TopicOrderShipped:   true,
	events.TopicOrderDelivered: true,
	events.TopicPaymentFailed:  true,
	events.TopicPaymentExpired: true,
	events.TopicKYCReviewed:    true,
}

// TaskClient is the slice of asynq.Client the notifier needs.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskNotifier implements events.Notifier by enqueuing an email task per
// relevant event. The event id doubles as the task id, so re-emitting the
// same event never produces a second email.
type TaskNotifier struct {
	Client   TaskClient
	MaxRetry int
}

// Notify implements the events.Notifier interface.
func (n TaskNotifier) Notify(ctx context.Context, event repo.DomainEvent) error {
	if n.Client == nil || !notifiedTopics[event.Topic] {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}
	maxRetry := n.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 5
	}
	task := asynq.NewTask(TaskEmailNotification, payload)
	_, err = n.Client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.TaskID(event.ID.String()),
		asynq.MaxRetry(maxRetry),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return fmt.Errorf("notify: enqueue email: %w", err)
	}
	return nil
}
