// Package domain holds the lead model and its enumerations.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the lifecycle status of a lead. Stored as an int enum.
type LeadStatus int

const (
	StatusPending LeadStatus = iota
	StatusContacted
	StatusQualified
	StatusProposalSent
	StatusNegotiating
	StatusWon
	StatusLost
	StatusUnqualified
)

var statusNames = map[LeadStatus]string{
	StatusPending:      "pending",
	StatusContacted:    "contacted",
	StatusQualified:    "qualified",
	StatusProposalSent: "proposal_sent",
	StatusNegotiating:  "negotiating",
	StatusWon:          "won",
	StatusLost:         "lost",
	StatusUnqualified:  "unqualified",
}

func (s LeadStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// ParseLeadStatus converts a status name to its enum value.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	for status, name := range statusNames {
		if name == raw {
			return status, nil
		}
	}
	return StatusPending, fmt.Errorf("invalid lead status %q", raw)
}

// QualifiesForDeal reports whether the status is far enough along the pipeline
// to create or update a CRM deal/opportunity.
func (s LeadStatus) QualifiesForDeal() bool {
	switch s {
	case StatusQualified, StatusProposalSent, StatusNegotiating, StatusWon:
		return true
	}
	return false
}

// Budget tiers.
const (
	BudgetUnder10K = "under_10k"
	Budget10K25K   = "10k_25k"
	Budget25K50K   = "25k_50k"
	Budget50K100K  = "50k_100k"
	Budget100K250K = "100k_250k"
	Budget250KPlus = "250k_plus"
)

// Timeline urgency values.
const (
	TimelineASAP     = "asap"
	TimelineOneMonth = "1_month"
	TimelineQuarter  = "3_months"
	TimelineHalfYear = "6_months"
	TimelineYear     = "1_year"
	TimelineFlexible = "flexible"
)

// Project types.
const (
	ProjectWebDevelopment      = "web_development"
	ProjectMobileDevelopment   = "mobile_development"
	ProjectDataEngineering     = "data_engineering"
	ProjectAnalyticsPlatform   = "analytics_platform"
	ProjectTechnicalConsulting = "technical_consulting"
	ProjectOther               = "other"
)

// Priority tiers derived from the total score.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// PriorityTier classifies a total score into high/medium/low.
// high >= 80, medium >= 60, low below that.
func PriorityTier(score float64) string {
	switch {
	case score >= 80:
		return PriorityHigh
	case score >= 60:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Lead is an inbound sales inquiry. The score and sub-scores are always the
// deterministic output of the scoring engine over the other fields; they are
// recomputed before every persistence of scored fields and never set
// independently.
type Lead struct {
	ID                     uuid.UUID
	FirstName              string
	LastName               string
	Email                  string
	Phone                  *string
	Company                *string
	Website                *string
	ProjectType            string
	Budget                 string
	Timeline               string
	ProjectDescription     string
	Source                 string
	PreferredContactMethod string
	Status                 LeadStatus
	Score                  float64
	BudgetScore            float64
	TimelineScore          float64
	ComplexityScore        float64
	QualityScore           float64
	ContactedAt            *time.Time
	QualifiedAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// FullName returns the lead's display name.
func (l Lead) FullName() string {
	return l.FirstName + " " + l.LastName
}

// PriorityTier returns the lead's priority classification.
func (l Lead) PriorityTier() string {
	return PriorityTier(l.Score)
}

// BudgetDisplay returns a human-readable budget range.
func BudgetDisplay(budget string) string {
	switch budget {
	case BudgetUnder10K:
		return "Under $10,000"
	case Budget10K25K:
		return "$10,000 - $25,000"
	case Budget25K50K:
		return "$25,000 - $50,000"
	case Budget50K100K:
		return "$50,000 - $100,000"
	case Budget100K250K:
		return "$100,000 - $250,000"
	case Budget250KPlus:
		return "$250,000+"
	default:
		return budget
	}
}

// TimelineDisplay returns a human-readable timeline.
func TimelineDisplay(timeline string) string {
	switch timeline {
	case TimelineASAP:
		return "ASAP"
	case TimelineOneMonth:
		return "1 Month"
	case TimelineQuarter:
		return "3 Months"
	case TimelineHalfYear:
		return "6 Months"
	case TimelineYear:
		return "1 Year"
	case TimelineFlexible:
		return "Flexible"
	default:
		return timeline
	}
}

// ProjectTypeDisplay returns a human-readable project type.
func ProjectTypeDisplay(projectType string) string {
	switch projectType {
	case ProjectWebDevelopment:
		return "Web Development"
	case ProjectMobileDevelopment:
		return "Mobile Development"
	case ProjectDataEngineering:
		return "Data Engineering"
	case ProjectAnalyticsPlatform:
		return "Analytics Platform"
	case ProjectTechnicalConsulting:
		return "Technical Consulting"
	default:
		return "Other"
	}
}
