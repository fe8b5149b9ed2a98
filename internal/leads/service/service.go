// Package service implements lead intake and lifecycle status transitions.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/events"
	"leadlift_backend/internal/leads/domain"
	"leadlift_backend/internal/leads/repository"
	"leadlift_backend/internal/leads/scoring"
	"leadlift_backend/platform/apperr"
	"leadlift_backend/platform/logger"
	"leadlift_backend/platform/phone"

	"github.com/google/uuid"
)

// LeadsRepository is the persistence surface the service depends on.
type LeadsRepository interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (domain.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, params repository.UpdateStatusParams) (domain.Lead, error)
	UpdateScores(ctx context.Context, id uuid.UUID, total, budget, timeline, complexity, quality float64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo      LeadsRepository
	eventBus  events.Bus
	analytics analytics.Recorder
	log       *logger.Logger
	now       func() time.Time
}

func New(repo LeadsRepository, eventBus events.Bus, recorder analytics.Recorder, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		eventBus:  eventBus,
		analytics: recorder,
		log:       log,
		now:       time.Now,
	}
}

// IntakeParams carries a validated inbound inquiry. Field validation (enum
// membership, email format, description length) happens at the transport
// layer; the service normalizes and scores.
type IntakeParams struct {
	FirstName              string
	LastName               string
	Email                  string
	Phone                  string
	Company                string
	Website                string
	ProjectType            string
	Budget                 string
	Timeline               string
	ProjectDescription     string
	Source                 string
	PreferredContactMethod string
}

// Intake scores and persists a new lead, then publishes LeadCreated.
func (s *Service) Intake(ctx context.Context, params IntakeParams) (domain.Lead, error) {
	snapshot := domain.Lead{
		FirstName:              strings.TrimSpace(params.FirstName),
		LastName:               strings.TrimSpace(params.LastName),
		Email:                  strings.ToLower(strings.TrimSpace(params.Email)),
		Phone:                  optional(phone.NormalizeE164(params.Phone)),
		Company:                optional(params.Company),
		Website:                optional(params.Website),
		ProjectType:            params.ProjectType,
		Budget:                 params.Budget,
		Timeline:               params.Timeline,
		ProjectDescription:     strings.TrimSpace(params.ProjectDescription),
		Source:                 params.Source,
		PreferredContactMethod: params.PreferredContactMethod,
	}

	result := scoring.Score(snapshot)

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		FirstName:              snapshot.FirstName,
		LastName:               snapshot.LastName,
		Email:                  snapshot.Email,
		Phone:                  snapshot.Phone,
		Company:                snapshot.Company,
		Website:                snapshot.Website,
		ProjectType:            snapshot.ProjectType,
		Budget:                 snapshot.Budget,
		Timeline:               snapshot.Timeline,
		ProjectDescription:     snapshot.ProjectDescription,
		Source:                 snapshot.Source,
		PreferredContactMethod: snapshot.PreferredContactMethod,
		Score:                  result.Total,
		BudgetScore:            result.Budget,
		TimelineScore:          result.Timeline,
		ComplexityScore:        result.Complexity,
		QualityScore:           result.Quality,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return domain.Lead{}, apperr.Conflict("a lead with this email already exists")
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err).WithOp("leads.Intake")
	}

	if s.analytics != nil {
		if err := s.analytics.Record(ctx, analytics.Event{
			LeadID:    lead.ID,
			EventType: analytics.EventLeadCreated,
			Source:    lead.Source,
			Metadata:  map[string]any{"score": lead.Score, "priority": lead.PriorityTier()},
		}); err != nil {
			s.log.Warn("analytics write failed", "event", analytics.EventLeadCreated, "error", err)
		}
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		Score:     lead.Score,
		Priority:  lead.PriorityTier(),
		Source:    lead.Source,
	})

	return lead, nil
}

// Get returns a lead by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err).WithOp("leads.Get")
	}
	return lead, nil
}

// UpdateStatus transitions a lead's lifecycle status, stamping contacted_at
// and qualified_at the first time those milestones are reached, and publishes
// LeadStatusChanged.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus domain.LeadStatus) (domain.Lead, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return domain.Lead{}, err
	}

	if lead.Status == newStatus {
		return lead, nil
	}

	params := repository.UpdateStatusParams{Status: newStatus}
	now := s.now()
	if newStatus >= domain.StatusContacted && newStatus <= domain.StatusWon && lead.ContactedAt == nil {
		params.ContactedAt = &now
	}
	if newStatus.QualifiesForDeal() && lead.QualifiedAt == nil {
		params.QualifiedAt = &now
	}

	updated, err := s.repo.UpdateStatus(ctx, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		return domain.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to update lead status", err).WithOp("leads.UpdateStatus")
	}

	s.eventBus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    updated.ID,
		OldStatus: lead.Status,
		NewStatus: updated.Status,
	})

	return updated, nil
}

// Rescore recomputes and persists the score columns from the current
// snapshot. Used after any edit of scored fields.
func (s *Service) Rescore(ctx context.Context, id uuid.UUID) (scoring.Result, error) {
	lead, err := s.Get(ctx, id)
	if err != nil {
		return scoring.Result{}, err
	}

	result := scoring.Score(lead)
	if err := s.repo.UpdateScores(ctx, id, result.Total, result.Budget, result.Timeline, result.Complexity, result.Quality); err != nil {
		return scoring.Result{}, apperr.Wrap(apperr.KindInternal, "failed to persist scores", err).WithOp("leads.Rescore")
	}

	return result, nil
}

// Delete removes a lead and, via cascading foreign keys, its sync records,
// sequences, and analytics.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to delete lead", err).WithOp("leads.Delete")
	}
	return nil
}

func optional(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
