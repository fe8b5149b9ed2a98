// Package repository persists CRM sync records. State transitions are
// enforced with conditional updates so concurrent workers cannot move a
// record through an illegal edge.
package repository

import (
	"context"
	"errors"
	"time"

	"leadlift_backend/internal/crmsync/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("sync record not found")
	// ErrIllegalTransition means the record exists but is not in a state the
	// requested transition departs from.
	ErrIllegalTransition = errors.New("illegal sync state transition")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const recordColumns = `id, lead_id, crm_system, sync_status, crm_id, deal_id,
	current_stage, stage_updated_at, last_synced_at, sync_error, retry_count,
	failed_at, retry_requested_at, created_at, updated_at`

// FindOrCreate returns the record for (lead, system), creating a pending one
// if none exists. The unique index on (lead_id, crm_system) plus ON CONFLICT
// DO NOTHING makes concurrent callers converge on a single row.
func (r *Repository) FindOrCreate(ctx context.Context, leadID uuid.UUID, crmSystem string) (domain.Record, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO crm_sync_records (lead_id, crm_system, sync_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, crm_system) DO NOTHING`,
		leadID, crmSystem, string(domain.StatusPending),
	)
	if err != nil {
		return domain.Record{}, err
	}

	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM crm_sync_records
		WHERE lead_id = $1 AND crm_system = $2`,
		leadID, crmSystem,
	)
	return scanRecord(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM crm_sync_records WHERE id = $1`, id)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, ErrNotFound
	}
	return record, err
}

// ListByLead returns all sync records for a lead.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM crm_sync_records
		WHERE lead_id = $1
		ORDER BY crm_system`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// MarkSyncing claims a record for a worker. Every state except an in-flight
// syncing claim is claimable: pending jobs, failed records redelivered by the
// queue, and synced records re-enqueued after a lead status change. The
// stored crm_id keeps the subsequent upsert an update rather than a
// duplicate create.
func (r *Repository) MarkSyncing(ctx context.Context, id uuid.UUID) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE crm_sync_records
		SET sync_status = $2, updated_at = now()
		WHERE id = $1 AND sync_status <> $2
		RETURNING `+recordColumns,
		id, string(domain.StatusSyncing),
	)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, r.transitionFailure(ctx, id)
	}
	return record, err
}

// MarkSynced completes a sync. This is the only transition that clears the
// error and retry bookkeeping.
func (r *Repository) MarkSynced(ctx context.Context, id uuid.UUID, crmID string) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE crm_sync_records
		SET sync_status = $2,
			crm_id = $3,
			last_synced_at = now(),
			sync_error = NULL,
			retry_count = 0,
			failed_at = NULL,
			updated_at = now()
		WHERE id = $1 AND sync_status = $4
		RETURNING `+recordColumns,
		id, string(domain.StatusSynced), crmID, string(domain.StatusSyncing),
	)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, r.transitionFailure(ctx, id)
	}
	return record, err
}

// MarkFailed records a sync failure and consumes one retry credit.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, message string) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE crm_sync_records
		SET sync_status = $2,
			sync_error = $3,
			retry_count = retry_count + 1,
			failed_at = now(),
			updated_at = now()
		WHERE id = $1 AND sync_status = $4
		RETURNING `+recordColumns,
		id, string(domain.StatusFailed), message, string(domain.StatusSyncing),
	)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, r.transitionFailure(ctx, id)
	}
	return record, err
}

// RequestRetry moves a failed record back to pending. The retry budget gate
// lives in the WHERE clause so it holds under concurrency.
func (r *Repository) RequestRetry(ctx context.Context, id uuid.UUID) (domain.Record, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE crm_sync_records
		SET sync_status = $2,
			retry_requested_at = now(),
			updated_at = now()
		WHERE id = $1 AND sync_status = $3 AND retry_count < $4
		RETURNING `+recordColumns,
		id, string(domain.StatusPending), string(domain.StatusFailed), domain.MaxRetries,
	)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Record{}, r.transitionFailure(ctx, id)
	}
	return record, err
}

// SetDeal stores the external deal id after a deal upsert.
func (r *Repository) SetDeal(ctx context.Context, id uuid.UUID, dealID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE crm_sync_records SET deal_id = $2, updated_at = now() WHERE id = $1`,
		id, dealID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStage stores the pipeline stage applied in the external system.
func (r *Repository) SetStage(ctx context.Context, id uuid.UUID, stage string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE crm_sync_records
		SET current_stage = $2, stage_updated_at = now(), updated_at = now()
		WHERE id = $1`,
		id, stage,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPending returns pending records oldest first.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM crm_sync_records
		WHERE sync_status = $1
		ORDER BY created_at
		LIMIT $2`,
		string(domain.StatusPending), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListFailedNeedingRetry returns failed records under the retry budget whose
// failure is older than the given cutoff.
func (r *Repository) ListFailedNeedingRetry(ctx context.Context, failedBefore time.Time, limit int) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM crm_sync_records
		WHERE sync_status = $1 AND retry_count < $2 AND failed_at < $3
		ORDER BY failed_at
		LIMIT $4`,
		string(domain.StatusFailed), domain.MaxRetries, failedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ReleaseStalledSyncing moves syncing records untouched since the cutoff
// back to pending. A record sits in syncing past the claim timeout only when
// the worker died between claiming and recording an outcome.
func (r *Repository) ReleaseStalledSyncing(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE crm_sync_records
		SET sync_status = $1, updated_at = now()
		WHERE id IN (
			SELECT id FROM crm_sync_records
			WHERE sync_status = $2 AND updated_at < $3
			ORDER BY updated_at
			LIMIT $4
		)
		RETURNING `+recordColumns,
		string(domain.StatusPending), string(domain.StatusSyncing), updatedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListSyncedBefore returns synced records whose last sync is older than the
// cutoff, oldest first.
func (r *Repository) ListSyncedBefore(ctx context.Context, syncedBefore time.Time, limit int) ([]domain.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM crm_sync_records
		WHERE sync_status = $1 AND last_synced_at < $2
		ORDER BY last_synced_at
		LIMIT $3`,
		string(domain.StatusSynced), syncedBefore, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Stats summarizes record counts per status.
type Stats struct {
	Pending int64
	Syncing int64
	Synced  int64
	Failed  int64
}

func (r *Repository) Statistics(ctx context.Context) (Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT sync_status, COUNT(*) FROM crm_sync_records GROUP BY sync_status`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, err
		}
		switch domain.SyncStatus(status) {
		case domain.StatusPending:
			stats.Pending = count
		case domain.StatusSyncing:
			stats.Syncing = count
		case domain.StatusSynced:
			stats.Synced = count
		case domain.StatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// transitionFailure distinguishes a missing record from one in the wrong
// state after a conditional update matched no rows.
func (r *Repository) transitionFailure(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM crm_sync_records WHERE id = $1)`, id).Scan(&exists)
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

func scanRecord(row rowScanner) (domain.Record, error) {
	var record domain.Record
	var status string
	err := row.Scan(
		&record.ID, &record.LeadID, &record.CrmSystem, &status, &record.CrmID, &record.DealID,
		&record.CurrentStage, &record.StageUpdatedAt, &record.LastSyncedAt, &record.SyncError, &record.RetryCount,
		&record.FailedAt, &record.RetryRequestedAt, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return domain.Record{}, err
	}
	record.Status = domain.SyncStatus(status)
	return record, nil
}

func collectRecords(rows pgx.Rows) ([]domain.Record, error) {
	var records []domain.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
