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

const salesforceAPIVersion = "v59.0"

type salesforceStage struct {
	Name        string
	Probability int
}

var salesforceStages = map[domain.LeadStatus]salesforceStage{
	domain.StatusPending:      {Name: "Prospecting", Probability: 10},
	domain.StatusContacted:    {Name: "Prospecting", Probability: 10},
	domain.StatusQualified:    {Name: "Qualification", Probability: 25},
	domain.StatusProposalSent: {Name: "Proposal/Price Quote", Probability: 50},
	domain.StatusNegotiating:  {Name: "Negotiation/Review", Probability: 75},
	domain.StatusWon:          {Name: "Closed Won", Probability: 100},
	domain.StatusLost:         {Name: "Closed Lost", Probability: 0},
	domain.StatusUnqualified:  {Name: "Closed Lost", Probability: 0},
}

var salesforceLeadSources = map[string]string{
	"website":    "Web",
	"referral":   "Referral",
	"linkedin":   "Social Media",
	"google_ads": "Advertisement",
	"other":      "Other",
}

// Salesforce talks to the Salesforce REST sobjects API on a single instance.
type Salesforce struct {
	instanceURL string
	accessToken string
	client      *http.Client
	now         func() time.Time
}

func NewSalesforce(instanceURL, accessToken string) *Salesforce {
	return &Salesforce{
		instanceURL: instanceURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
		now:         time.Now,
	}
}

func (s *Salesforce) Name() string {
	return SystemSalesforce
}

func (s *Salesforce) UpsertContact(ctx context.Context, lead domain.Lead, externalID string) (string, error) {
	fields := map[string]any{
		"FirstName":   lead.FirstName,
		"LastName":    lead.LastName,
		"Email":       lead.Email,
		"LeadSource":  s.leadSource(lead.Source),
		"Description": lead.ProjectDescription,
	}
	if lead.Phone != nil {
		fields["Phone"] = *lead.Phone
	}

	if externalID != "" {
		// Salesforce PATCH returns 204 with no body.
		if err := s.do(ctx, http.MethodPatch, s.objectPath("Contact", externalID), fields, nil); err != nil {
			return "", err
		}
		return externalID, nil
	}

	var resp salesforceCreated
	if err := s.do(ctx, http.MethodPost, s.objectPath("Contact", ""), fields, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (s *Salesforce) UpsertDeal(ctx context.Context, lead domain.Lead, contactID, dealID string) (string, error) {
	stage := salesforceStages[lead.Status]
	fields := map[string]any{
		"Name":        fmt.Sprintf("%s - %s", lead.FullName(), domain.ProjectTypeDisplay(lead.ProjectType)),
		"Amount":      EstimateDealValue(lead.Budget),
		"StageName":   stage.Name,
		"Probability": stage.Probability,
		"CloseDate":   EstimateCloseDate(s.now(), lead.Timeline).Format("2006-01-02"),
		"ContactId":   contactID,
		"LeadSource":  s.leadSource(lead.Source),
	}

	if dealID != "" {
		if err := s.do(ctx, http.MethodPatch, s.objectPath("Opportunity", dealID), fields, nil); err != nil {
			return "", err
		}
		return dealID, nil
	}

	var resp salesforceCreated
	if err := s.do(ctx, http.MethodPost, s.objectPath("Opportunity", ""), fields, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (s *Salesforce) UpdateStage(ctx context.Context, lead domain.Lead, dealID string) (string, error) {
	stage := salesforceStages[lead.Status]
	fields := map[string]any{
		"StageName":   stage.Name,
		"Probability": stage.Probability,
	}
	if err := s.do(ctx, http.MethodPatch, s.objectPath("Opportunity", dealID), fields, nil); err != nil {
		return "", err
	}
	return stage.Name, nil
}

// CreateNote records the activity as a completed follow-up task on the
// contact, which is how notes surface in Salesforce activity timelines.
func (s *Salesforce) CreateNote(ctx context.Context, lead domain.Lead, contactID, body string) error {
	fields := map[string]any{
		"WhoId":        contactID,
		"Subject":      fmt.Sprintf("Follow up: %s - %s", lead.FullName(), domain.ProjectTypeDisplay(lead.ProjectType)),
		"Description":  body,
		"Status":       "Completed",
		"Priority":     s.taskPriority(lead),
		"ActivityDate": s.now().Format("2006-01-02"),
	}
	return s.do(ctx, http.MethodPost, s.objectPath("Task", ""), fields, nil)
}

func (s *Salesforce) leadSource(source string) string {
	if mapped, ok := salesforceLeadSources[source]; ok {
		return mapped
	}
	return "Other"
}

func (s *Salesforce) taskPriority(lead domain.Lead) string {
	switch lead.PriorityTier() {
	case domain.PriorityHigh:
		return "High"
	case domain.PriorityMedium:
		return "Normal"
	default:
		return "Low"
	}
}

func (s *Salesforce) objectPath(object, id string) string {
	path := fmt.Sprintf("/services/data/%s/sobjects/%s", salesforceAPIVersion, object)
	if id != "" {
		path += "/" + id
	}
	return path
}

type salesforceCreated struct {
	ID string `json:"id"`
}

type salesforceErrorBody struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (s *Salesforce) do(ctx context.Context, method, path string, payload any, out any) error {
	if s.instanceURL == "" || s.accessToken == "" {
		return &AdapterError{System: SystemSalesforce, Message: "instance url or access token not configured"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &AdapterError{System: SystemSalesforce, Message: fmt.Sprintf("encode request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, method, s.instanceURL+path, bytes.NewReader(body))
	if err != nil {
		return &AdapterError{System: SystemSalesforce, Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &AdapterError{System: SystemSalesforce, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := "request failed"
		// Salesforce error responses are an array of error objects.
		var errBody []salesforceErrorBody
		if json.Unmarshal(raw, &errBody) == nil && len(errBody) > 0 && errBody[0].Message != "" {
			message = errBody[0].Message
		}
		return &AdapterError{System: SystemSalesforce, StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &AdapterError{System: SystemSalesforce, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

var _ Adapter = (*Salesforce)(nil)
