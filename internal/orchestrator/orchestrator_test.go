package orchestrator

import (
	"context"
	"testing"

	crmsyncdomain "leadlift_backend/internal/crmsync/domain"
	"leadlift_backend/internal/events"
	leadsdomain "leadlift_backend/internal/leads/domain"
	seqdomain "leadlift_backend/internal/sequences/domain"
	"leadlift_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeLeads struct {
	lead leadsdomain.Lead
}

func (f *fakeLeads) Get(_ context.Context, _ uuid.UUID) (leadsdomain.Lead, error) {
	return f.lead, nil
}

type fakeSequences struct {
	started []string
}

func (f *fakeSequences) Start(_ context.Context, _ uuid.UUID, name string) (seqdomain.Sequence, error) {
	f.started = append(f.started, name)
	return seqdomain.Sequence{SequenceName: name}, nil
}

type fakeSync struct {
	ensured []uuid.UUID
}

func (f *fakeSync) EnsureRecords(_ context.Context, leadID uuid.UUID) ([]crmsyncdomain.Record, error) {
	f.ensured = append(f.ensured, leadID)
	return []crmsyncdomain.Record{{LeadID: leadID}}, nil
}

type fakeNotifier struct {
	notified []uuid.UUID
}

func (f *fakeNotifier) SendSequenceEmail(_ context.Context, _ leadsdomain.Lead, _ string, _ int) error {
	return nil
}

func (f *fakeNotifier) SendNewLeadNotification(_ context.Context, lead leadsdomain.Lead) error {
	f.notified = append(f.notified, lead.ID)
	return nil
}

type fixture struct {
	bus       *events.InMemoryBus
	sequences *fakeSequences
	sync      *fakeSync
	notifier  *fakeNotifier
	leadID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.New("development")
	leadID := uuid.New()
	f := &fixture{
		bus:       events.NewInMemoryBus(log),
		sequences: &fakeSequences{},
		sync:      &fakeSync{},
		notifier:  &fakeNotifier{},
		leadID:    leadID,
	}
	orch := New(
		&fakeLeads{lead: leadsdomain.Lead{ID: leadID, FirstName: "Dana", Email: "dana@example.com"}},
		f.sequences,
		f.sync,
		f.notifier,
		log,
	)
	orch.Register(f.bus)
	return f
}

func TestLeadCreatedStartsWelcomeAndNotifies(t *testing.T) {
	f := newFixture(t)

	err := f.bus.PublishSync(context.Background(), events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    f.leadID,
		Email:     "dana@example.com",
		Score:     91.25,
		Priority:  leadsdomain.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(f.sequences.started) != 1 || f.sequences.started[0] != seqdomain.SequenceWelcome {
		t.Fatalf("started sequences = %v, want [welcome]", f.sequences.started)
	}
	if len(f.notifier.notified) != 1 || f.notifier.notified[0] != f.leadID {
		t.Fatalf("notified = %v, want the new lead", f.notifier.notified)
	}
	if len(f.sync.ensured) != 0 {
		t.Fatalf("sync records ensured on creation: %v", f.sync.ensured)
	}
}

func TestStatusChangeIntoQualifyingSetEnsuresSync(t *testing.T) {
	f := newFixture(t)

	for _, status := range []leadsdomain.LeadStatus{
		leadsdomain.StatusQualified,
		leadsdomain.StatusProposalSent,
		leadsdomain.StatusNegotiating,
		leadsdomain.StatusWon,
	} {
		err := f.bus.PublishSync(context.Background(), events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    f.leadID,
			OldStatus: leadsdomain.StatusContacted,
			NewStatus: status,
		})
		if err != nil {
			t.Fatalf("PublishSync(%s): %v", status, err)
		}
	}

	if len(f.sync.ensured) != 4 {
		t.Fatalf("sync ensured %d times, want 4", len(f.sync.ensured))
	}
}

func TestStatusChangeOutsideQualifyingSetDoesNothing(t *testing.T) {
	f := newFixture(t)

	for _, status := range []leadsdomain.LeadStatus{
		leadsdomain.StatusContacted,
		leadsdomain.StatusLost,
		leadsdomain.StatusUnqualified,
	} {
		err := f.bus.PublishSync(context.Background(), events.LeadStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    f.leadID,
			OldStatus: leadsdomain.StatusPending,
			NewStatus: status,
		})
		if err != nil {
			t.Fatalf("PublishSync(%s): %v", status, err)
		}
	}

	if len(f.sync.ensured) != 0 {
		t.Fatalf("sync ensured for non-qualifying statuses: %v", f.sync.ensured)
	}
}
