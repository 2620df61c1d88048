package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Events persists domain events.
type Events struct {
	DB DB
}

// WithTx returns a copy bound to the given transaction.
func (r Events) WithTx(tx pgx.Tx) Events {
	return Events{DB: tx}
}

// Insert stores one domain event and returns the persisted row.
func (r Events) Insert(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (DomainEvent, error) {
	var ev DomainEvent
	err := r.DB.QueryRow(ctx, `
		INSERT INTO domain_events (topic, aggregate_id, payload)
		VALUES ($1, $2, $3)
		RETURNING id, topic, aggregate_id, payload, occurred_at`,
		topic, aggregateID, payload).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}
