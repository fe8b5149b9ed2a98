// Package transport defines request/response DTOs for the leads HTTP surface.
package transport

import (
	"time"

	"leadlift_backend/internal/leads/domain"
)

// CreateLeadRequest is the public intake payload.
type CreateLeadRequest struct {
	FirstName              string `json:"firstName" validate:"required,max=50"`
	LastName               string `json:"lastName" validate:"required,max=50"`
	Email                  string `json:"email" validate:"required,email"`
	Phone                  string `json:"phone" validate:"omitempty,max=30"`
	Company                string `json:"company" validate:"omitempty,max=100"`
	Website                string `json:"website" validate:"omitempty,max=200"`
	ProjectType            string `json:"projectType" validate:"required,oneof=web_development mobile_development data_engineering analytics_platform technical_consulting other"`
	Budget                 string `json:"budget" validate:"required,oneof=under_10k 10k_25k 25k_50k 50k_100k 100k_250k 250k_plus"`
	Timeline               string `json:"timeline" validate:"required,oneof=asap 1_month 3_months 6_months 1_year flexible"`
	ProjectDescription     string `json:"projectDescription" validate:"required,min=20,max=2000"`
	Source                 string `json:"source" validate:"required,max=50"`
	PreferredContactMethod string `json:"preferredContactMethod" validate:"omitempty,oneof=email phone both"`
}

// UpdateLeadStatusRequest transitions a lead's lifecycle status.
type UpdateLeadStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending contacted qualified proposal_sent negotiating won lost unqualified"`
}

// LeadResponse is the lead representation returned by the API.
type LeadResponse struct {
	ID                     string     `json:"id"`
	FirstName              string     `json:"firstName"`
	LastName               string     `json:"lastName"`
	Email                  string     `json:"email"`
	Phone                  *string    `json:"phone,omitempty"`
	Company                *string    `json:"company,omitempty"`
	Website                *string    `json:"website,omitempty"`
	ProjectType            string     `json:"projectType"`
	Budget                 string     `json:"budget"`
	Timeline               string     `json:"timeline"`
	ProjectDescription     string     `json:"projectDescription"`
	Source                 string     `json:"source"`
	PreferredContactMethod string     `json:"preferredContactMethod"`
	Status                 string     `json:"status"`
	Score                  float64    `json:"score"`
	BudgetScore            float64    `json:"budgetScore"`
	TimelineScore          float64    `json:"timelineScore"`
	ComplexityScore        float64    `json:"complexityScore"`
	QualityScore           float64    `json:"qualityScore"`
	Priority               string     `json:"priority"`
	ContactedAt            *time.Time `json:"contactedAt,omitempty"`
	QualifiedAt            *time.Time `json:"qualifiedAt,omitempty"`
	CreatedAt              time.Time  `json:"createdAt"`
}

// ToLeadResponse maps a domain lead to its API representation.
func ToLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:                     lead.ID.String(),
		FirstName:              lead.FirstName,
		LastName:               lead.LastName,
		Email:                  lead.Email,
		Phone:                  lead.Phone,
		Company:                lead.Company,
		Website:                lead.Website,
		ProjectType:            lead.ProjectType,
		Budget:                 lead.Budget,
		Timeline:               lead.Timeline,
		ProjectDescription:     lead.ProjectDescription,
		Source:                 lead.Source,
		PreferredContactMethod: lead.PreferredContactMethod,
		Status:                 lead.Status.String(),
		Score:                  lead.Score,
		BudgetScore:            lead.BudgetScore,
		TimelineScore:          lead.TimelineScore,
		ComplexityScore:        lead.ComplexityScore,
		QualityScore:           lead.QualityScore,
		Priority:               lead.PriorityTier(),
		ContactedAt:            lead.ContactedAt,
		QualifiedAt:            lead.QualifiedAt,
		CreatedAt:              lead.CreatedAt,
	}
}
