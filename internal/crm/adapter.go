// Package crm provides outbound adapters for external CRM systems. Each
// system implements the same Adapter interface; the sync state machine never
// branches on the system name.
package crm

import (
	"context"
	"fmt"
	"time"

	"leadlift_backend/internal/leads/domain"
	"leadlift_backend/platform/config"
	"leadlift_backend/platform/logger"
)

// Supported system identifiers.
const (
	SystemHubspot    = "hubspot"
	SystemSalesforce = "salesforce"
)

// Adapter is the per-system client consumed by the sync state machine.
// Upserts are idempotent: a non-empty externalID/dealID selects update,
// otherwise create. All failures surface as *AdapterError.
type Adapter interface {
	Name() string
	// UpsertContact creates or updates the contact and returns its external id.
	UpsertContact(ctx context.Context, lead domain.Lead, externalID string) (string, error)
	// UpsertDeal creates or updates the deal/opportunity associated with the
	// contact and returns its external id.
	UpsertDeal(ctx context.Context, lead domain.Lead, contactID, dealID string) (string, error)
	// UpdateStage maps the lead status to the external pipeline stage, applies
	// it to the deal, and returns the stage that was set.
	UpdateStage(ctx context.Context, lead domain.Lead, dealID string) (string, error)
	// CreateNote attaches an activity note (or follow-up task, depending on
	// the system) to the contact.
	CreateNote(ctx context.Context, lead domain.Lead, contactID, body string) error
}

// AdapterError is the typed failure envelope for adapter calls: network
// errors, missing credentials, and non-2xx responses all land here.
type AdapterError struct {
	System     string
	StatusCode int
	Message    string
}

func (e *AdapterError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.System, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.System, e.Message)
}

// Registry holds the configured adapters keyed by system name.
type Registry struct {
	adapters map[string]Adapter
	systems  []string
}

// NewRegistry builds adapters for every configured CRM system.
func NewRegistry(cfg config.CrmConfig, log *logger.Logger) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}

	for _, system := range cfg.GetCrmSystems() {
		switch system {
		case SystemHubspot:
			r.register(NewHubspot(cfg.GetHubspotAPIKey()))
		case SystemSalesforce:
			r.register(NewSalesforce(cfg.GetSalesforceInstanceURL(), cfg.GetSalesforceAccessToken()))
		default:
			log.Warn("unknown crm system configured, skipping", "crm_system", system)
		}
	}

	return r
}

// NewRegistryWith builds a registry from explicit adapters.
func NewRegistryWith(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, adapter := range adapters {
		r.register(adapter)
	}
	return r
}

func (r *Registry) register(adapter Adapter) {
	if _, exists := r.adapters[adapter.Name()]; exists {
		return
	}
	r.adapters[adapter.Name()] = adapter
	r.systems = append(r.systems, adapter.Name())
}

// ForSystem returns the adapter for the given system name.
func (r *Registry) ForSystem(name string) (Adapter, bool) {
	adapter, ok := r.adapters[name]
	return adapter, ok
}

// Systems returns the configured system names in registration order.
func (r *Registry) Systems() []string {
	return r.systems
}

// =============================================================================
// Shared estimation tables (identical across systems)
// =============================================================================

var dealValues = map[string]int{
	domain.BudgetUnder10K: 5000,
	domain.Budget10K25K:   17500,
	domain.Budget25K50K:   37500,
	domain.Budget50K100K:  75000,
	domain.Budget100K250K: 175000,
	domain.Budget250KPlus: 400000,
}

// EstimateDealValue maps a budget tier to an estimated deal amount in USD.
func EstimateDealValue(budget string) int {
	if v, ok := dealValues[budget]; ok {
		return v
	}
	return 50000
}

// EstimateCloseDate projects an expected close date from the timeline.
func EstimateCloseDate(now time.Time, timeline string) time.Time {
	switch timeline {
	case domain.TimelineASAP, domain.TimelineOneMonth:
		return now.AddDate(0, 1, 0)
	case domain.TimelineQuarter:
		return now.AddDate(0, 3, 0)
	case domain.TimelineHalfYear:
		return now.AddDate(0, 6, 0)
	case domain.TimelineYear:
		return now.AddDate(1, 0, 0)
	default:
		return now.AddDate(0, 3, 0)
	}
}

// ActivityNote renders the note body attached to a contact after a sync.
func ActivityNote(lead domain.Lead) string {
	note := fmt.Sprintf(
		"Lead: %s\nEmail: %s\nProject Type: %s\nBudget: %s\nTimeline: %s\nPriority: %s (Score: %.2f)\n\nProject Description:\n%s\n\nSource: %s",
		lead.FullName(),
		lead.Email,
		domain.ProjectTypeDisplay(lead.ProjectType),
		domain.BudgetDisplay(lead.Budget),
		domain.TimelineDisplay(lead.Timeline),
		lead.PriorityTier(),
		lead.Score,
		lead.ProjectDescription,
		lead.Source,
	)
	if lead.Company != nil {
		note = fmt.Sprintf("%s\nCompany: %s", note, *lead.Company)
	}
	return note
}
