package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/lojamovel/backend-loja/internal/events"
	"github.com/lojamovel/backend-loja/internal/repo"
)

// Directory resolves a customer's email address.
type Directory interface {
	Email(ctx context.Context, userID uuid.UUID) (string, error)
}

// EmailWorker consumes email tasks and delivers them.
type EmailWorker struct {
	Sender    Sender
	Directory Directory
	Logger    zerolog.Logger
}

// Mux returns an asynq mux with the worker's handlers registered.
func (w *EmailWorker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskEmailNotification, w.ProcessTask)
	return mux
}

// ProcessTask handles one email task. Missing recipients are dropped, not
// retried: retrying cannot make an address appear.
func (w *EmailWorker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var event repo.DomainEvent
	if err := json.Unmarshal(task.Payload(), &event); err != nil {
		return fmt.Errorf("notify: decode task: %v: %w", err, asynq.SkipRetry)
	}
	to, err := w.recipient(ctx, event)
	if err != nil {
		return err
	}
	if to == "" {
		w.Logger.Debug().Str("topic", event.Topic).Msg("no recipient, dropping notification")
		return nil
	}
	subject := subjectFor(event.Topic)
	body := bodyFor(event)
	if err := w.Sender.Send(to, subject, body); err != nil {
		return fmt.Errorf("notify: send %s: %w", event.Topic, err)
	}
	w.Logger.Info().Str("topic", event.Topic).Str("to", to).Msg("notification sent")
	return nil
}

func (w *EmailWorker) recipient(ctx context.Context, event repo.DomainEvent) (string, error) {
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		_ = json.Unmarshal(event.Payload, &payload)
	}
	if email, ok := payload["email"].(string); ok && email != "" {
		return email, nil
	}
	if w.Directory == nil {
		return "", nil
	}
	raw, ok := payload["userId"].(string)
	if !ok {
		return "", nil
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return "", nil
	}
	return w.Directory.Email(ctx, userID)
}

func subjectFor(topic string) string {
	switch topic {
	case events.TopicOrderCreated:
		return "Pedido recebido"
	case events.TopicOrderPaid:
		return "Pagamento confirmado"
	case events.TopicOrderCancelled:
		return "Pedido cancelado"
	case events.TopicOrderShipped:
		return "Pedido enviado"
	case events.TopicOrderDelivered:
		return "Pedido entregue"
	case events.TopicPaymentFailed:
		return "Pagamento recusado"
	case events.TopicPaymentExpired:
		return "Pagamento expirado"
	case events.TopicKYCReviewed:
		return "Análise de documentos concluída"
	default:
		return fmt.Sprintf("Notificação %s", topic)
	}
}

func bodyFor(event repo.DomainEvent) string {
	payload := map[string]any{}
	if len(event.Payload) > 0 {
		_ = json.Unmarshal(event.Payload, &payload)
	}
	summary := fmt.Sprintf("Evento %s registrado em %s.", event.Topic, event.OccurredAt.Format(time.RFC3339))
	if orderID, ok := payload["orderId"].(string); ok && orderID != "" {
		summary += fmt.Sprintf("\nPedido: %s", orderID)
	}
	if status, ok := payload["status"].(string); ok && status != "" {
		summary += fmt.Sprintf("\nSituação: %s", status)
	}
	if reason, ok := payload["reason"].(string); ok && reason != "" {
		summary += "\nMotivo: " + reason
	}
	return summary
}
