// Package analytics records lead-scoped lifecycle events (email sends,
// intake) for reporting. Writes are best-effort from the callers' point of
// view; a failed analytics write never fails the operation that produced it.
package analytics

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event types recorded by the lifecycle engine.
const (
	EventLeadCreated = "lead_created"
	EventEmailSent   = "email_sent"
)

// Event is a single analytics entry tied to a lead.
type Event struct {
	LeadID    uuid.UUID
	EventType string
	Source    string
	Metadata  map[string]any
}

// Recorder is the write interface consumed by other modules.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, event Event) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO analytics (lead_id, event_type, source, metadata)
		VALUES ($1, $2, $3, $4)`,
		event.LeadID, event.EventType, event.Source, raw,
	)
	return err
}

var _ Recorder = (*Repository)(nil)
