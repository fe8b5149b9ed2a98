// Package service drives the CRM sync state machine: claiming pending
// records, calling the system adapter, and recording the outcome.
package service

import (
	"context"
	"errors"
	"time"

	"leadlift_backend/internal/crm"
	"leadlift_backend/internal/crmsync/domain"
	"leadlift_backend/internal/crmsync/repository"
	leadsdomain "leadlift_backend/internal/leads/domain"
	"leadlift_backend/platform/apperr"
	"leadlift_backend/platform/logger"

	"github.com/google/uuid"
)

// retryStaleness is how long a failure must stand before the bulk retry
// sweep picks the record up again.
const retryStaleness = time.Hour

// claimTimeout is how long a record may sit in syncing before the sweeper
// assumes the claiming worker died and releases it.
const claimTimeout = 15 * time.Minute

const batchLimit = 100

// RecordsRepository is the persistence surface the service depends on.
type RecordsRepository interface {
	FindOrCreate(ctx context.Context, leadID uuid.UUID, crmSystem string) (domain.Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Record, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Record, error)
	MarkSyncing(ctx context.Context, id uuid.UUID) (domain.Record, error)
	MarkSynced(ctx context.Context, id uuid.UUID, crmID string) (domain.Record, error)
	MarkFailed(ctx context.Context, id uuid.UUID, message string) (domain.Record, error)
	RequestRetry(ctx context.Context, id uuid.UUID) (domain.Record, error)
	SetDeal(ctx context.Context, id uuid.UUID, dealID string) error
	SetStage(ctx context.Context, id uuid.UUID, stage string) error
	ListPending(ctx context.Context, limit int) ([]domain.Record, error)
	ListFailedNeedingRetry(ctx context.Context, failedBefore time.Time, limit int) ([]domain.Record, error)
	ReleaseStalledSyncing(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.Record, error)
	ListSyncedBefore(ctx context.Context, syncedBefore time.Time, limit int) ([]domain.Record, error)
	Statistics(ctx context.Context) (repository.Stats, error)
}

// LeadReader loads the lead snapshot a sync pushes outward.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (leadsdomain.Lead, error)
}

// Enqueuer schedules sync jobs onto the background queue.
type Enqueuer interface {
	EnqueueCrmSync(ctx context.Context, recordID uuid.UUID) error
}

type Service struct {
	repo     RecordsRepository
	leads    LeadReader
	adapters *crm.Registry
	queue    Enqueuer
	log      *logger.Logger
	now      func() time.Time
}

func New(repo RecordsRepository, leads LeadReader, adapters *crm.Registry, queue Enqueuer, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		leads:    leads,
		adapters: adapters,
		queue:    queue,
		log:      log,
		now:      time.Now,
	}
}

// EnsureRecords creates (or finds) one sync record per configured CRM system
// for the lead and enqueues a sync job for each. Safe to call repeatedly: the
// unique (lead, system) row is reused and an extra job re-runs the sync as an
// update keyed on the stored external ids.
func (s *Service) EnsureRecords(ctx context.Context, leadID uuid.UUID) ([]domain.Record, error) {
	var records []domain.Record
	for _, system := range s.adapters.Systems() {
		record, err := s.repo.FindOrCreate(ctx, leadID, system)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to ensure sync record", err).WithOp("crmsync.EnsureRecords")
		}
		records = append(records, record)

		if err := s.queue.EnqueueCrmSync(ctx, record.ID); err != nil {
			s.log.Error("failed to enqueue crm sync", "sync_record_id", record.ID, "crm_system", system, "error", err)
		}
	}
	return records, nil
}

// ListForLead returns the lead's sync records across all systems.
func (s *Service) ListForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Record, error) {
	records, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list sync records", err).WithOp("crmsync.ListForLead")
	}
	return records, nil
}

// RunSync executes one sync attempt for a record. The contact upsert is the
// gate: its failure marks the record failed and propagates so the queue can
// retry the delivery. Deal, stage, and note pushes are enrichment; their
// failures are logged and the record stays synced. Redelivered and
// re-enqueued jobs re-run the full unit as an update keyed on the stored
// external ids; only a claim held by another worker skips.
func (s *Service) RunSync(ctx context.Context, recordID uuid.UUID) error {
	record, err := s.repo.GetByID(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("sync record not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load sync record", err).WithOp("crmsync.RunSync")
	}

	claimed, err := s.repo.MarkSyncing(ctx, recordID)
	if errors.Is(err, repository.ErrIllegalTransition) {
		// Another worker holds the claim right now.
		s.log.SyncEvent("sync_skipped", record.CrmSystem, recordID.String())
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to claim sync record", err).WithOp("crmsync.RunSync")
	}
	record = claimed

	adapter, ok := s.adapters.ForSystem(record.CrmSystem)
	if !ok {
		_, _ = s.repo.MarkFailed(ctx, recordID, "no adapter configured for "+record.CrmSystem)
		return apperr.NotFound("no adapter configured for " + record.CrmSystem)
	}

	lead, err := s.leads.Get(ctx, record.LeadID)
	if err != nil {
		_, _ = s.repo.MarkFailed(ctx, recordID, "lead not found")
		if apperr.GetKind(err) == apperr.KindNotFound {
			return apperr.NotFound("lead not found")
		}
		return err
	}

	contactID, err := adapter.UpsertContact(ctx, lead, stringValue(record.CrmID))
	if err != nil {
		failed, markErr := s.repo.MarkFailed(ctx, recordID, err.Error())
		if markErr != nil {
			s.log.Error("failed to record sync failure", "sync_record_id", recordID, "error", markErr)
		}
		s.log.SyncEvent("sync_failed", record.CrmSystem, recordID.String(),
			"retry_count", failed.RetryCount, "error", err.Error())
		return apperr.Wrap(apperr.KindUnavailable, "crm contact sync failed", err).WithOp("crmsync.RunSync")
	}

	record, err = s.repo.MarkSynced(ctx, recordID, contactID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark record synced", err).WithOp("crmsync.RunSync")
	}
	s.log.SyncEvent("sync_completed", record.CrmSystem, recordID.String(), "crm_id", contactID)

	s.enrich(ctx, adapter, record, lead, contactID)
	return nil
}

// enrich pushes the deal, stage, and activity note. Best effort.
func (s *Service) enrich(ctx context.Context, adapter crm.Adapter, record domain.Record, lead leadsdomain.Lead, contactID string) {
	if lead.Status.QualifiesForDeal() {
		dealID, err := adapter.UpsertDeal(ctx, lead, contactID, stringValue(record.DealID))
		if err != nil {
			s.log.Warn("crm deal sync failed", "sync_record_id", record.ID, "crm_system", record.CrmSystem, "error", err)
		} else {
			if err := s.repo.SetDeal(ctx, record.ID, dealID); err != nil {
				s.log.Error("failed to store deal id", "sync_record_id", record.ID, "error", err)
			}
			stage, err := adapter.UpdateStage(ctx, lead, dealID)
			if err != nil {
				s.log.Warn("crm stage update failed", "sync_record_id", record.ID, "crm_system", record.CrmSystem, "error", err)
			} else if err := s.repo.SetStage(ctx, record.ID, stage); err != nil {
				s.log.Error("failed to store stage", "sync_record_id", record.ID, "error", err)
			}
		}
	}

	if err := adapter.CreateNote(ctx, lead, contactID, crm.ActivityNote(lead)); err != nil {
		s.log.Warn("crm note creation failed", "sync_record_id", record.ID, "crm_system", record.CrmSystem, "error", err)
	}
}

// RetrySync requeues a single failed record. Fails if the record is not in a
// retryable state or its retry budget is exhausted.
func (s *Service) RetrySync(ctx context.Context, recordID uuid.UUID) (domain.Record, error) {
	record, err := s.repo.RequestRetry(ctx, recordID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Record{}, apperr.NotFound("sync record not found")
	}
	if errors.Is(err, repository.ErrIllegalTransition) {
		return domain.Record{}, apperr.Conflict("sync record is not retryable")
	}
	if err != nil {
		return domain.Record{}, apperr.Wrap(apperr.KindInternal, "failed to request retry", err).WithOp("crmsync.RetrySync")
	}

	if err := s.queue.EnqueueCrmSync(ctx, record.ID); err != nil {
		return domain.Record{}, apperr.Wrap(apperr.KindUnavailable, "failed to enqueue sync", err).WithOp("crmsync.RetrySync")
	}

	s.log.SyncEvent("retry_requested", record.CrmSystem, record.ID.String(), "retry_count", record.RetryCount)
	return record, nil
}

// RetryAllFailed sweeps failed records whose failure is at least an hour old
// and requeues those still under the retry budget. Returns how many were
// requeued.
func (s *Service) RetryAllFailed(ctx context.Context) (int, error) {
	records, err := s.repo.ListFailedNeedingRetry(ctx, s.now().Add(-retryStaleness), batchLimit)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to list failed records", err).WithOp("crmsync.RetryAllFailed")
	}

	requeued := 0
	for _, record := range records {
		if _, err := s.RetrySync(ctx, record.ID); err != nil {
			s.log.Warn("bulk retry skipped record", "sync_record_id", record.ID, "error", err)
			continue
		}
		requeued++
	}
	return requeued, nil
}

// SyncPending enqueues a job for every pending record. Used by the resync
// sweeper and the operator endpoint to recover dropped jobs.
func (s *Service) SyncPending(ctx context.Context) (int, error) {
	records, err := s.repo.ListPending(ctx, batchLimit)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to list pending records", err).WithOp("crmsync.SyncPending")
	}

	enqueued := 0
	for _, record := range records {
		if err := s.queue.EnqueueCrmSync(ctx, record.ID); err != nil {
			s.log.Warn("failed to enqueue pending sync", "sync_record_id", record.ID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}

// RecoverStalled releases records stuck in syncing past the claim timeout
// back to pending and requeues them. Returns how many were released.
func (s *Service) RecoverStalled(ctx context.Context) (int, error) {
	records, err := s.repo.ReleaseStalledSyncing(ctx, s.now().Add(-claimTimeout), batchLimit)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to release stalled records", err).WithOp("crmsync.RecoverStalled")
	}

	recovered := 0
	for _, record := range records {
		if err := s.queue.EnqueueCrmSync(ctx, record.ID); err != nil {
			s.log.Warn("failed to enqueue recovered sync", "sync_record_id", record.ID, "error", err)
			continue
		}
		s.log.SyncEvent("claim_released", record.CrmSystem, record.ID.String())
		recovered++
	}
	return recovered, nil
}

// ResyncStale re-enqueues synced records whose last push is older than the
// staleness window, so external systems converge even without a lead status
// change.
func (s *Service) ResyncStale(ctx context.Context) (int, error) {
	records, err := s.repo.ListSyncedBefore(ctx, s.now().Add(-domain.ResyncAfter), batchLimit)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to list stale records", err).WithOp("crmsync.ResyncStale")
	}

	requeued := 0
	for _, record := range records {
		if !record.NeedsResync(s.now()) {
			continue
		}
		if err := s.queue.EnqueueCrmSync(ctx, record.ID); err != nil {
			s.log.Warn("failed to enqueue stale resync", "sync_record_id", record.ID, "error", err)
			continue
		}
		requeued++
	}
	return requeued, nil
}

// Statistics returns record counts per status.
func (s *Service) Statistics(ctx context.Context) (repository.Stats, error) {
	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return repository.Stats{}, apperr.Wrap(apperr.KindInternal, "failed to compute sync statistics", err).WithOp("crmsync.Statistics")
	}
	return stats, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
