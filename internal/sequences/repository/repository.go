// Package repository persists email sequences. As with sync records, state
// transitions are conditional updates so concurrent jobs cannot advance a
// terminal sequence.
package repository

import (
	"context"
	"errors"
	"time"

	"leadlift_backend/internal/sequences/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("sequence not found")
	ErrIllegalTransition = errors.New("illegal sequence state transition")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sequenceColumns = `id, lead_id, sequence_name, current_step, status,
	started_at, completed_at, last_email_sent_at, next_email_at,
	paused_at, pause_reason, created_at, updated_at`

// FindOrCreate returns the sequence for (lead, name), creating an active one
// at step 0 if none exists. The boolean reports whether a new row was
// inserted; the unique (lead_id, sequence_name) index makes concurrent
// creators converge on one row.
func (r *Repository) FindOrCreate(ctx context.Context, leadID uuid.UUID, name string) (domain.Sequence, bool, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO email_sequences (lead_id, sequence_name, current_step, status, started_at)
		VALUES ($1, $2, 0, $3, now())
		ON CONFLICT (lead_id, sequence_name) DO NOTHING
		RETURNING `+sequenceColumns,
		leadID, name, string(domain.StatusActive),
	)

	seq, err := scanSequence(row)
	if err == nil {
		return seq, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, false, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT `+sequenceColumns+`
		FROM email_sequences
		WHERE lead_id = $1 AND sequence_name = $2`,
		leadID, name,
	)
	seq, err = scanSequence(row)
	return seq, false, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+sequenceColumns+` FROM email_sequences WHERE id = $1`, id)

	seq, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, ErrNotFound
	}
	return seq, err
}

// ListByLead returns all sequences for a lead.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Sequence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sequenceColumns+`
		FROM email_sequences
		WHERE lead_id = $1
		ORDER BY started_at`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSequences(rows)
}

// Advance records a handled step on an active sequence: the new step, the
// send time, and either the persisted next wake time or completion.
func (r *Repository) Advance(ctx context.Context, id uuid.UUID, newStep int, completed bool, sentAt time.Time, nextEmailAt *time.Time) (domain.Sequence, error) {
	status := domain.StatusActive
	if completed {
		status = domain.StatusCompleted
		nextEmailAt = nil
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE email_sequences
		SET current_step = $2,
			status = $3,
			completed_at = CASE WHEN $4 THEN now() ELSE completed_at END,
			last_email_sent_at = $5,
			next_email_at = $6,
			updated_at = now()
		WHERE id = $1 AND status = $7
		RETURNING `+sequenceColumns,
		id, newStep, string(status), completed, sentAt, nextEmailAt, string(domain.StatusActive),
	)

	seq, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, r.transitionFailure(ctx, id)
	}
	return seq, err
}

// Pause suspends an active sequence. The next wake time is cleared; Resume
// computes a fresh one.
func (r *Repository) Pause(ctx context.Context, id uuid.UUID, reason string) (domain.Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE email_sequences
		SET status = $2,
			paused_at = now(),
			pause_reason = $3,
			next_email_at = NULL,
			updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+sequenceColumns,
		id, string(domain.StatusPaused), reason, string(domain.StatusActive),
	)

	seq, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, r.transitionFailure(ctx, id)
	}
	return seq, err
}

// Resume reactivates a paused sequence and persists its next wake time.
func (r *Repository) Resume(ctx context.Context, id uuid.UUID, nextEmailAt time.Time) (domain.Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE email_sequences
		SET status = $2,
			paused_at = NULL,
			pause_reason = NULL,
			next_email_at = $3,
			updated_at = now()
		WHERE id = $1 AND status = $4
		RETURNING `+sequenceColumns,
		id, string(domain.StatusActive), nextEmailAt, string(domain.StatusPaused),
	)

	seq, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, r.transitionFailure(ctx, id)
	}
	return seq, err
}

// Cancel terminates an active or paused sequence.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (domain.Sequence, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE email_sequences
		SET status = $2,
			next_email_at = NULL,
			updated_at = now()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+sequenceColumns,
		id, string(domain.StatusCancelled),
		[]string{string(domain.StatusActive), string(domain.StatusPaused)},
	)

	seq, err := scanSequence(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Sequence{}, r.transitionFailure(ctx, id)
	}
	return seq, err
}

// ListStalled returns active sequences whose persisted wake time passed
// before the cutoff: their scheduled job was lost and must be re-enqueued.
func (r *Repository) ListStalled(ctx context.Context, before time.Time, limit int) ([]domain.Sequence, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sequenceColumns+`
		FROM email_sequences
		WHERE status = $1 AND next_email_at IS NOT NULL AND next_email_at < $2
		ORDER BY next_email_at
		LIMIT $3`,
		string(domain.StatusActive), before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSequences(rows)
}

func (r *Repository) transitionFailure(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM email_sequences WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrIllegalTransition
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSequence(row rowScanner) (domain.Sequence, error) {
	var seq domain.Sequence
	var status string
	err := row.Scan(
		&seq.ID, &seq.LeadID, &seq.SequenceName, &seq.CurrentStep, &status,
		&seq.StartedAt, &seq.CompletedAt, &seq.LastEmailSentAt, &seq.NextEmailAt,
		&seq.PausedAt, &seq.PauseReason, &seq.CreatedAt, &seq.UpdatedAt,
	)
	if err != nil {
		return domain.Sequence{}, err
	}
	seq.Status = domain.SequenceStatus(status)
	return seq, nil
}

func collectSequences(rows pgx.Rows) ([]domain.Sequence, error) {
	var sequences []domain.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, seq)
	}
	return sequences, rows.Err()
}
