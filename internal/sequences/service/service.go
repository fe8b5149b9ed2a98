// Package service runs email sequences: each step job sends one email,
// advances the sequence, and schedules its own successor at the persisted
// next wake time.
package service

import (
	"context"
	"errors"
	"time"

	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/email"
	leadsdomain "leadlift_backend/internal/leads/domain"
	"leadlift_backend/internal/sequences/domain"
	"leadlift_backend/internal/sequences/repository"
	"leadlift_backend/platform/apperr"
	"leadlift_backend/platform/logger"

	"github.com/google/uuid"
)

const stalledBatchLimit = 100

// SequencesRepository is the persistence surface the service depends on.
type SequencesRepository interface {
	FindOrCreate(ctx context.Context, leadID uuid.UUID, name string) (domain.Sequence, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Sequence, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.Sequence, error)
	Advance(ctx context.Context, id uuid.UUID, newStep int, completed bool, sentAt time.Time, nextEmailAt *time.Time) (domain.Sequence, error)
	Pause(ctx context.Context, id uuid.UUID, reason string) (domain.Sequence, error)
	Resume(ctx context.Context, id uuid.UUID, nextEmailAt time.Time) (domain.Sequence, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Sequence, error)
	ListStalled(ctx context.Context, before time.Time, limit int) ([]domain.Sequence, error)
}

// LeadReader loads the lead a sequence emails.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (leadsdomain.Lead, error)
}

// Scheduler places step jobs on the queue at a given time.
type Scheduler interface {
	ScheduleSequenceStep(ctx context.Context, sequenceID uuid.UUID, at time.Time) error
}

type Service struct {
	repo      SequencesRepository
	leads     LeadReader
	sender    email.Sender
	analytics analytics.Recorder
	queue     Scheduler
	log       *logger.Logger
	now       func() time.Time
}

func New(repo SequencesRepository, leads LeadReader, sender email.Sender, recorder analytics.Recorder, queue Scheduler, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		leads:     leads,
		sender:    sender,
		analytics: recorder,
		queue:     queue,
		log:       log,
		now:       time.Now,
	}
}

// Start begins a campaign for a lead. Idempotent: if the sequence already
// exists nothing new is scheduled, the existing row is returned.
func (s *Service) Start(ctx context.Context, leadID uuid.UUID, name string) (domain.Sequence, error) {
	if !domain.KnownSequence(name) {
		return domain.Sequence{}, apperr.Validation("unknown sequence " + name)
	}

	seq, created, err := s.repo.FindOrCreate(ctx, leadID, name)
	if err != nil {
		return domain.Sequence{}, apperr.Wrap(apperr.KindInternal, "failed to create sequence", err).WithOp("sequences.Start")
	}
	if !created {
		return seq, nil
	}

	// Step 0 goes out immediately.
	if err := s.queue.ScheduleSequenceStep(ctx, seq.ID, s.now()); err != nil {
		return domain.Sequence{}, apperr.Wrap(apperr.KindUnavailable, "failed to schedule first step", err).WithOp("sequences.Start")
	}

	s.log.SequenceEvent("sequence_started", name, seq.ID.String(), 0)
	return seq, nil
}

// RunStep executes one step job: guard, send, record, advance, schedule the
// successor. A failure anywhere in the loop pauses the sequence so it is
// never left active without a pending job.
func (s *Service) RunStep(ctx context.Context, sequenceID uuid.UUID) error {
	seq, err := s.repo.GetByID(ctx, sequenceID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("sequence not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to load sequence", err).WithOp("sequences.RunStep")
	}

	// Cooperative cancellation: paused, completed, and cancelled sequences
	// turn pending invocations into no-ops.
	if seq.Status != domain.StatusActive {
		s.log.SequenceEvent("step_skipped", seq.SequenceName, seq.ID.String(), seq.CurrentStep)
		return nil
	}

	lead, err := s.leads.Get(ctx, seq.LeadID)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return apperr.NotFound("lead not found")
		}
		s.pauseOnFailure(ctx, seq, "failed to load lead: "+err.Error())
		return nil
	}

	if err := s.sender.SendSequenceEmail(ctx, lead, seq.SequenceName, seq.CurrentStep); err != nil {
		s.pauseOnFailure(ctx, seq, "send failed: "+err.Error())
		return nil
	}
	sentAt := s.now()

	if s.analytics != nil {
		if err := s.analytics.Record(ctx, analytics.Event{
			LeadID:    seq.LeadID,
			EventType: analytics.EventEmailSent,
			Source:    seq.SequenceName,
			Metadata:  map[string]any{"sequence_name": seq.SequenceName, "step": seq.CurrentStep},
		}); err != nil {
			s.log.Warn("analytics write failed", "event", analytics.EventEmailSent, "error", err)
		}
	}

	decision := seq.Advance()
	var nextAt *time.Time
	if decision.Advanced && !decision.Completed {
		due := seq.NextEmailDate(decision.NewStep)
		nextAt = &due
	}

	updated, err := s.repo.Advance(ctx, sequenceID, decision.NewStep, decision.Completed, sentAt, nextAt)
	if errors.Is(err, repository.ErrIllegalTransition) {
		// Paused or cancelled between the guard and the write.
		s.log.SequenceEvent("advance_skipped", seq.SequenceName, seq.ID.String(), seq.CurrentStep)
		return nil
	}
	if err != nil {
		s.pauseOnFailure(ctx, seq, "advance failed: "+err.Error())
		return nil
	}

	if decision.Completed {
		s.log.SequenceEvent("sequence_completed", updated.SequenceName, updated.ID.String(), updated.CurrentStep)
		return nil
	}

	if err := s.queue.ScheduleSequenceStep(ctx, sequenceID, *nextAt); err != nil {
		s.pauseOnFailure(ctx, updated, "schedule failed: "+err.Error())
		return nil
	}

	s.log.SequenceEvent("step_sent", updated.SequenceName, updated.ID.String(), updated.CurrentStep)
	return nil
}

// pauseOnFailure moves a sequence to paused after a loop failure. If even the
// pause write fails there is nothing left to do but log.
func (s *Service) pauseOnFailure(ctx context.Context, seq domain.Sequence, reason string) {
	s.log.Error("sequence step failed, pausing",
		"sequence_id", seq.ID, "sequence_name", seq.SequenceName, "step", seq.CurrentStep, "reason", reason)
	if _, err := s.repo.Pause(ctx, seq.ID, reason); err != nil {
		s.log.Error("failed to pause sequence", "sequence_id", seq.ID, "error", err)
	}
}

// Pause suspends a sequence at the operator's request.
func (s *Service) Pause(ctx context.Context, id uuid.UUID, reason string) (domain.Sequence, error) {
	if reason == "" {
		reason = "paused by operator"
	}
	seq, err := s.repo.Pause(ctx, id, reason)
	if err != nil {
		return domain.Sequence{}, mapRepoError(err, "sequences.Pause", "failed to pause sequence")
	}
	s.log.SequenceEvent("sequence_paused", seq.SequenceName, seq.ID.String(), seq.CurrentStep)
	return seq, nil
}

// Resume reactivates a paused sequence and schedules its current step. Steps
// already overdue go out immediately.
func (s *Service) Resume(ctx context.Context, id uuid.UUID) (domain.Sequence, error) {
	seq, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Sequence{}, apperr.NotFound("sequence not found")
	}
	if err != nil {
		return domain.Sequence{}, apperr.Wrap(apperr.KindInternal, "failed to load sequence", err).WithOp("sequences.Resume")
	}

	nextAt := seq.NextEmailDate(seq.CurrentStep)
	if now := s.now(); nextAt.Before(now) {
		nextAt = now
	}

	seq, err = s.repo.Resume(ctx, id, nextAt)
	if err != nil {
		return domain.Sequence{}, mapRepoError(err, "sequences.Resume", "failed to resume sequence")
	}

	if err := s.queue.ScheduleSequenceStep(ctx, id, nextAt); err != nil {
		return domain.Sequence{}, apperr.Wrap(apperr.KindUnavailable, "failed to schedule resumed step", err).WithOp("sequences.Resume")
	}

	s.log.SequenceEvent("sequence_resumed", seq.SequenceName, seq.ID.String(), seq.CurrentStep)
	return seq, nil
}

// Cancel terminates a sequence. Any still-scheduled invocation no-ops on the
// status guard.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Sequence, error) {
	seq, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return domain.Sequence{}, mapRepoError(err, "sequences.Cancel", "failed to cancel sequence")
	}
	s.log.SequenceEvent("sequence_cancelled", seq.SequenceName, seq.ID.String(), seq.CurrentStep)
	return seq, nil
}

// ListForLead returns the lead's sequences.
func (s *Service) ListForLead(ctx context.Context, leadID uuid.UUID) ([]domain.Sequence, error) {
	sequences, err := s.repo.ListByLead(ctx, leadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list sequences", err).WithOp("sequences.ListForLead")
	}
	return sequences, nil
}

// RescheduleStalled re-enqueues active sequences whose persisted wake time
// has passed without the job firing (worker crash, queue loss). Returns how
// many were rescheduled.
func (s *Service) RescheduleStalled(ctx context.Context) (int, error) {
	stalled, err := s.repo.ListStalled(ctx, s.now(), stalledBatchLimit)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to list stalled sequences", err).WithOp("sequences.RescheduleStalled")
	}

	rescheduled := 0
	for _, seq := range stalled {
		if err := s.queue.ScheduleSequenceStep(ctx, seq.ID, s.now()); err != nil {
			s.log.Warn("failed to reschedule stalled sequence", "sequence_id", seq.ID, "error", err)
			continue
		}
		rescheduled++
	}
	return rescheduled, nil
}

func mapRepoError(err error, op, message string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("sequence not found")
	case errors.Is(err, repository.ErrIllegalTransition):
		return apperr.Conflict("sequence is not in a state that allows this transition")
	default:
		return apperr.Wrap(apperr.KindInternal, message, err).WithOp(op)
	}
}
