// Package orchestrator is the thin glue between the lead lifecycle and the
// two engines: on creation it starts the welcome sequence and alerts the
// operators, on qualification it kicks off CRM synchronization. It holds no
// state of its own.
package orchestrator

import (
	"context"
	"fmt"

	crmsyncdomain "leadlift_backend/internal/crmsync/domain"
	"leadlift_backend/internal/email"
	"leadlift_backend/internal/events"
	leadsdomain "leadlift_backend/internal/leads/domain"
	seqdomain "leadlift_backend/internal/sequences/domain"
	"leadlift_backend/platform/logger"

	"github.com/google/uuid"
)

// SequenceStarter begins a campaign for a lead.
type SequenceStarter interface {
	Start(ctx context.Context, leadID uuid.UUID, name string) (seqdomain.Sequence, error)
}

// SyncEnsurer creates sync records for every configured CRM system and
// enqueues their jobs.
type SyncEnsurer interface {
	EnsureRecords(ctx context.Context, leadID uuid.UUID) ([]crmsyncdomain.Record, error)
}

// LeadReader loads the full lead for notification rendering.
type LeadReader interface {
	Get(ctx context.Context, id uuid.UUID) (leadsdomain.Lead, error)
}

type Orchestrator struct {
	leads     LeadReader
	sequences SequenceStarter
	sync      SyncEnsurer
	notifier  email.Sender
	log       *logger.Logger
}

func New(leads LeadReader, sequences SequenceStarter, sync SyncEnsurer, notifier email.Sender, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		leads:     leads,
		sequences: sequences,
		sync:      sync,
		notifier:  notifier,
		log:       log,
	}
}

// Register subscribes the orchestrator to the lifecycle events it reacts to.
func (o *Orchestrator) Register(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(o.onLeadCreated))
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(o.onLeadStatusChanged))
}

// onLeadCreated starts the welcome sequence and notifies the operators. The
// two actions are independent: a notification failure never blocks the
// sequence, and vice versa.
func (o *Orchestrator) onLeadCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(events.LeadCreated)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if _, err := o.sequences.Start(ctx, created.LeadID, seqdomain.SequenceWelcome); err != nil {
		o.log.Error("failed to start welcome sequence", "lead_id", created.LeadID, "error", err)
	}

	lead, err := o.leads.Get(ctx, created.LeadID)
	if err != nil {
		return fmt.Errorf("load lead for notification: %w", err)
	}
	if err := o.notifier.SendNewLeadNotification(ctx, lead); err != nil {
		o.log.Error("failed to send new lead notification", "lead_id", created.LeadID, "error", err)
	}

	return nil
}

// onLeadStatusChanged ensures CRM sync records exist once a lead first moves
// into the qualifying set. Transitions within the set re-trigger a sync so
// stage changes propagate.
func (o *Orchestrator) onLeadStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(events.LeadStatusChanged)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if !changed.NewStatus.QualifiesForDeal() {
		return nil
	}

	if _, err := o.sync.EnsureRecords(ctx, changed.LeadID); err != nil {
		return fmt.Errorf("ensure sync records: %w", err)
	}
	return nil
}
