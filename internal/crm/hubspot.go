package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"leadlift_backend/internal/leads/domain"
)

const hubspotBaseURL = "https://api.hubapi.com"

// HubSpot association type ids (contact-to-deal, note-to-contact).
const (
	hubspotAssocContactDeal = 3
	hubspotAssocNoteContact = 10
)

var hubspotStages = map[domain.LeadStatus]string{
	domain.StatusPending:      "appointmentscheduled",
	domain.StatusContacted:    "appointmentscheduled",
	domain.StatusQualified:    "qualifiedtobuy",
	domain.StatusProposalSent: "presentationscheduled",
	domain.StatusNegotiating:  "decisionmakerboughtin",
	domain.StatusWon:          "closedwon",
	domain.StatusLost:         "closedlost",
	domain.StatusUnqualified:  "closedlost",
}

// Hubspot talks to the HubSpot CRM v3 objects API.
type Hubspot struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

func NewHubspot(apiKey string) *Hubspot {
	return &Hubspot{
		baseURL: hubspotBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (h *Hubspot) Name() string {
	return SystemHubspot
}

func (h *Hubspot) UpsertContact(ctx context.Context, lead domain.Lead, externalID string) (string, error) {
	payload := map[string]any{
		"properties": h.contactProperties(lead),
	}

	if externalID != "" {
		var resp hubspotObject
		if err := h.do(ctx, http.MethodPatch, "/crm/v3/objects/contacts/"+externalID, payload, &resp); err != nil {
			return "", err
		}
		return resp.ID, nil
	}

	var resp hubspotObject
	if err := h.do(ctx, http.MethodPost, "/crm/v3/objects/contacts", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (h *Hubspot) UpsertDeal(ctx context.Context, lead domain.Lead, contactID, dealID string) (string, error) {
	properties := map[string]any{
		"dealname":  fmt.Sprintf("%s - %s", lead.FullName(), domain.ProjectTypeDisplay(lead.ProjectType)),
		"amount":    EstimateDealValue(lead.Budget),
		"dealstage": hubspotStages[lead.Status],
		"pipeline":  "default",
		"closedate": EstimateCloseDate(h.now(), lead.Timeline).UnixMilli(),
	}

	if dealID != "" {
		var resp hubspotObject
		if err := h.do(ctx, http.MethodPatch, "/crm/v3/objects/deals/"+dealID, map[string]any{"properties": properties}, &resp); err != nil {
			return "", err
		}
		return resp.ID, nil
	}

	payload := map[string]any{
		"properties": properties,
		"associations": []map[string]any{
			{
				"to": map[string]any{"id": contactID},
				"types": []map[string]any{
					{"associationCategory": "HUBSPOT_DEFINED", "associationTypeId": hubspotAssocContactDeal},
				},
			},
		},
	}

	var resp hubspotObject
	if err := h.do(ctx, http.MethodPost, "/crm/v3/objects/deals", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (h *Hubspot) UpdateStage(ctx context.Context, lead domain.Lead, dealID string) (string, error) {
	stage := hubspotStages[lead.Status]
	payload := map[string]any{
		"properties": map[string]any{"dealstage": stage},
	}
	if err := h.do(ctx, http.MethodPatch, "/crm/v3/objects/deals/"+dealID, payload, nil); err != nil {
		return "", err
	}
	return stage, nil
}

func (h *Hubspot) CreateNote(ctx context.Context, lead domain.Lead, contactID, body string) error {
	payload := map[string]any{
		"properties": map[string]any{
			"hs_timestamp": h.now().UnixMilli(),
			"hs_note_body": body,
		},
		"associations": []map[string]any{
			{
				"to": map[string]any{"id": contactID},
				"types": []map[string]any{
					{"associationCategory": "HUBSPOT_DEFINED", "associationTypeId": hubspotAssocNoteContact},
				},
			},
		},
	}
	return h.do(ctx, http.MethodPost, "/crm/v3/objects/notes", payload, nil)
}

func (h *Hubspot) contactProperties(lead domain.Lead) map[string]any {
	properties := map[string]any{
		"email":               lead.Email,
		"firstname":           lead.FirstName,
		"lastname":            lead.LastName,
		"lead_source":         lead.Source,
		"project_type":        lead.ProjectType,
		"budget_range":        lead.Budget,
		"project_timeline":    lead.Timeline,
		"lead_score":          lead.Score,
		"lead_status":         lead.Status.String(),
		"project_description": lead.ProjectDescription,
	}
	if lead.Phone != nil {
		properties["phone"] = *lead.Phone
	}
	if lead.Company != nil {
		properties["company"] = *lead.Company
	}
	if lead.Website != nil {
		properties["website"] = *lead.Website
	}
	return properties
}

type hubspotObject struct {
	ID string `json:"id"`
}

type hubspotErrorBody struct {
	Message string `json:"message"`
}

func (h *Hubspot) do(ctx context.Context, method, path string, payload any, out any) error {
	if h.apiKey == "" {
		return &AdapterError{System: SystemHubspot, Message: "api key not configured"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &AdapterError{System: SystemHubspot, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &AdapterError{System: SystemHubspot, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return &AdapterError{System: SystemHubspot, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := "request failed"
		var errBody hubspotErrorBody
		if json.Unmarshal(raw, &errBody) == nil && errBody.Message != "" {
			message = errBody.Message
		}
		return &AdapterError{System: SystemHubspot, StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &AdapterError{System: SystemHubspot, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

var _ Adapter = (*Hubspot)(nil)
