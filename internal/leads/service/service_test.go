package service

import (
	"context"
	"testing"
	"time"

	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/events"
	"leadlift_backend/internal/leads/domain"
	"leadlift_backend/internal/leads/repository"
	"leadlift_backend/platform/apperr"
	"leadlift_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	leads   map[uuid.UUID]domain.Lead
	byEmail map[string]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:   make(map[uuid.UUID]domain.Lead),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (domain.Lead, error) {
	if _, exists := f.byEmail[params.Email]; exists {
		return domain.Lead{}, repository.ErrDuplicateEmail
	}
	lead := domain.Lead{
		ID:                     uuid.New(),
		FirstName:              params.FirstName,
		LastName:               params.LastName,
		Email:                  params.Email,
		Phone:                  params.Phone,
		Company:                params.Company,
		Website:                params.Website,
		ProjectType:            params.ProjectType,
		Budget:                 params.Budget,
		Timeline:               params.Timeline,
		ProjectDescription:     params.ProjectDescription,
		Source:                 params.Source,
		PreferredContactMethod: params.PreferredContactMethod,
		Status:                 domain.StatusPending,
		Score:                  params.Score,
		BudgetScore:            params.BudgetScore,
		TimelineScore:          params.TimelineScore,
		ComplexityScore:        params.ComplexityScore,
		QualityScore:           params.QualityScore,
		CreatedAt:              time.Now(),
	}
	f.leads[lead.ID] = lead
	f.byEmail[lead.Email] = lead.ID
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, params repository.UpdateStatusParams) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	lead.Status = params.Status
	if params.ContactedAt != nil {
		lead.ContactedAt = params.ContactedAt
	}
	if params.QualifiedAt != nil {
		lead.QualifiedAt = params.QualifiedAt
	}
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateScores(_ context.Context, id uuid.UUID, total, budget, timeline, complexity, quality float64) error {
	lead, ok := f.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	lead.Score, lead.BudgetScore, lead.TimelineScore = total, budget, timeline
	lead.ComplexityScore, lead.QualityScore = complexity, quality
	f.leads[id] = lead
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	lead, ok := f.leads[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(f.byEmail, lead.Email)
	delete(f.leads, id)
	return nil
}

type capturingBus struct {
	published []events.Event
}

func (b *capturingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *capturingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *capturingBus) Subscribe(_ string, _ events.Handler) {}

type fakeRecorder struct {
	events []analytics.Event
}

func (f *fakeRecorder) Record(_ context.Context, event analytics.Event) error {
	f.events = append(f.events, event)
	return nil
}

func newService() (*Service, *fakeRepo, *capturingBus, *fakeRecorder) {
	repo := newFakeRepo()
	bus := &capturingBus{}
	recorder := &fakeRecorder{}
	svc := New(repo, bus, recorder, logger.New("development"))
	return svc, repo, bus, recorder
}

func intakeParams() IntakeParams {
	return IntakeParams{
		FirstName:              "Dana",
		LastName:               "Reyes",
		Email:                  "  Dana@Acme-Analytics.COM ",
		Phone:                  "(512) 555-0100",
		Company:                "Acme Analytics",
		ProjectType:            domain.ProjectDataEngineering,
		Budget:                 domain.Budget100K250K,
		Timeline:               domain.TimelineASAP,
		ProjectDescription:     "We need to consolidate our data warehouse pipelines into one system",
		Source:                 "referral",
		PreferredContactMethod: "both",
	}
}

func TestIntakeNormalizesScoresAndPublishes(t *testing.T) {
	svc, _, bus, recorder := newService()

	lead, err := svc.Intake(context.Background(), intakeParams())
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}

	if lead.Email != "dana@acme-analytics.com" {
		t.Fatalf("email = %q, want trimmed lowercase", lead.Email)
	}
	if lead.Phone == nil || *lead.Phone != "+15125550100" {
		t.Fatalf("phone = %v, want E.164 +15125550100", lead.Phone)
	}
	if lead.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", lead.Status)
	}
	if lead.Score <= 0 {
		t.Fatalf("score = %v, want > 0", lead.Score)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published = %d events, want 1", len(bus.published))
	}
	created, ok := bus.published[0].(events.LeadCreated)
	if !ok {
		t.Fatalf("event type = %T, want LeadCreated", bus.published[0])
	}
	if created.LeadID != lead.ID || created.Score != lead.Score {
		t.Fatalf("event = %+v does not match lead", created)
	}

	if len(recorder.events) != 1 || recorder.events[0].EventType != analytics.EventLeadCreated {
		t.Fatalf("analytics = %+v, want one lead_created", recorder.events)
	}
}

func TestIntakeRejectsDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newService()

	if _, err := svc.Intake(context.Background(), intakeParams()); err != nil {
		t.Fatalf("first Intake: %v", err)
	}

	_, err := svc.Intake(context.Background(), intakeParams())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("error kind = %v, want KindConflict", apperr.GetKind(err))
	}
}

func TestUpdateStatusStampsMilestonesOnce(t *testing.T) {
	svc, _, bus, _ := newService()
	lead, _ := svc.Intake(context.Background(), intakeParams())

	contacted, err := svc.UpdateStatus(context.Background(), lead.ID, domain.StatusContacted)
	if err != nil {
		t.Fatalf("UpdateStatus(contacted): %v", err)
	}
	if contacted.ContactedAt == nil {
		t.Fatal("contacted_at not stamped")
	}
	if contacted.QualifiedAt != nil {
		t.Fatal("qualified_at stamped too early")
	}
	firstContact := *contacted.ContactedAt

	qualified, err := svc.UpdateStatus(context.Background(), lead.ID, domain.StatusQualified)
	if err != nil {
		t.Fatalf("UpdateStatus(qualified): %v", err)
	}
	if qualified.QualifiedAt == nil {
		t.Fatal("qualified_at not stamped")
	}
	if !qualified.ContactedAt.Equal(firstContact) {
		t.Fatal("contacted_at overwritten on later transition")
	}

	// One LeadCreated plus two LeadStatusChanged.
	if len(bus.published) != 3 {
		t.Fatalf("published = %d events, want 3", len(bus.published))
	}
	changed, ok := bus.published[2].(events.LeadStatusChanged)
	if !ok {
		t.Fatalf("event type = %T, want LeadStatusChanged", bus.published[2])
	}
	if changed.OldStatus != domain.StatusContacted || changed.NewStatus != domain.StatusQualified {
		t.Fatalf("transition = %s -> %s, want contacted -> qualified", changed.OldStatus, changed.NewStatus)
	}
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	svc, _, bus, _ := newService()
	lead, _ := svc.Intake(context.Background(), intakeParams())
	before := len(bus.published)

	if _, err := svc.UpdateStatus(context.Background(), lead.ID, domain.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if len(bus.published) != before {
		t.Fatal("no-op transition published an event")
	}
}

func TestGetAndDeleteMissingLead(t *testing.T) {
	svc, _, _, _ := newService()

	if _, err := svc.Get(context.Background(), uuid.New()); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("Get error kind = %v, want KindNotFound", apperr.GetKind(err))
	}
	if err := svc.Delete(context.Background(), uuid.New()); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("Delete error kind = %v, want KindNotFound", apperr.GetKind(err))
	}
}

func TestRescorePersistsFreshScores(t *testing.T) {
	svc, repo, _, _ := newService()
	lead, _ := svc.Intake(context.Background(), intakeParams())

	// Simulate an out-of-band edit of a scored field.
	edited := repo.leads[lead.ID]
	edited.Budget = domain.BudgetUnder10K
	repo.leads[lead.ID] = edited

	result, err := svc.Rescore(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("Rescore: %v", err)
	}
	if result.Budget != 15 {
		t.Fatalf("budget sub-score = %v, want 15 after downgrade", result.Budget)
	}

	stored := repo.leads[lead.ID]
	if stored.Score != result.Total {
		t.Fatalf("persisted score %v != recomputed %v", stored.Score, result.Total)
	}
}
