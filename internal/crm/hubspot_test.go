package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"leadlift_backend/internal/leads/domain"
)

func testLead() domain.Lead {
	phone := "+15125550100"
	company := "Acme Analytics"
	return domain.Lead{
		FirstName:          "Dana",
		LastName:           "Reyes",
		Email:              "dana@acme-analytics.com",
		Phone:              &phone,
		Company:            &company,
		ProjectType:        domain.ProjectDataEngineering,
		Budget:             domain.Budget100K250K,
		Timeline:           domain.TimelineASAP,
		ProjectDescription: "Streaming pipeline consolidation across three warehouses",
		Source:             "referral",
		Status:             domain.StatusQualified,
		Score:              91.25,
	}
}

func newTestHubspot(t *testing.T) *Hubspot {
	t.Helper()
	h := NewHubspot("test-key")
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	httpmock.ActivateNonDefault(h.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return h
}

func TestHubspotUpsertContactCreates(t *testing.T) {
	h := newTestHubspot(t)

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, hubspotBaseURL+"/crm/v3/objects/contacts",
		func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(raw, &captured); err != nil {
				t.Fatalf("invalid request body: %v", err)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Fatalf("Authorization = %q", got)
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"contact-101"}`), nil
		})

	id, err := h.UpsertContact(context.Background(), testLead(), "")
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if id != "contact-101" {
		t.Fatalf("contact id = %q, want contact-101", id)
	}

	properties, ok := captured["properties"].(map[string]any)
	if !ok {
		t.Fatalf("missing properties in payload: %v", captured)
	}
	if properties["email"] != "dana@acme-analytics.com" {
		t.Fatalf("email property = %v", properties["email"])
	}
	if properties["company"] != "Acme Analytics" {
		t.Fatalf("company property = %v", properties["company"])
	}
}

func TestHubspotUpsertContactUpdatesExisting(t *testing.T) {
	h := newTestHubspot(t)

	httpmock.RegisterResponder(http.MethodPatch, hubspotBaseURL+"/crm/v3/objects/contacts/contact-101",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"contact-101"}`))

	id, err := h.UpsertContact(context.Background(), testLead(), "contact-101")
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if id != "contact-101" {
		t.Fatalf("contact id = %q, want contact-101", id)
	}
	if calls := httpmock.GetTotalCallCount(); calls != 1 {
		t.Fatalf("call count = %d, want 1", calls)
	}
}

func TestHubspotUpsertDealAssociatesContact(t *testing.T) {
	h := newTestHubspot(t)

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, hubspotBaseURL+"/crm/v3/objects/deals",
		func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(raw, &captured); err != nil {
				t.Fatalf("invalid request body: %v", err)
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"deal-7"}`), nil
		})

	id, err := h.UpsertDeal(context.Background(), testLead(), "contact-101", "")
	if err != nil {
		t.Fatalf("UpsertDeal: %v", err)
	}
	if id != "deal-7" {
		t.Fatalf("deal id = %q, want deal-7", id)
	}

	properties := captured["properties"].(map[string]any)
	if properties["dealstage"] != "qualifiedtobuy" {
		t.Fatalf("dealstage = %v, want qualifiedtobuy", properties["dealstage"])
	}
	if properties["amount"] != float64(175000) {
		t.Fatalf("amount = %v, want 175000", properties["amount"])
	}

	associations := captured["associations"].([]any)
	assoc := associations[0].(map[string]any)
	if to := assoc["to"].(map[string]any); to["id"] != "contact-101" {
		t.Fatalf("association target = %v, want contact-101", to["id"])
	}
}

func TestHubspotUpdateStageReturnsMappedStage(t *testing.T) {
	h := newTestHubspot(t)

	httpmock.RegisterResponder(http.MethodPatch, hubspotBaseURL+"/crm/v3/objects/deals/deal-7",
		httpmock.NewStringResponder(http.StatusOK, `{"id":"deal-7"}`))

	lead := testLead()
	lead.Status = domain.StatusWon

	stage, err := h.UpdateStage(context.Background(), lead, "deal-7")
	if err != nil {
		t.Fatalf("UpdateStage: %v", err)
	}
	if stage != "closedwon" {
		t.Fatalf("stage = %q, want closedwon", stage)
	}
}

func TestHubspotSurfacesAPIErrors(t *testing.T) {
	h := newTestHubspot(t)

	httpmock.RegisterResponder(http.MethodPost, hubspotBaseURL+"/crm/v3/objects/contacts",
		httpmock.NewStringResponder(http.StatusTooManyRequests, `{"message":"rate limit exceeded"}`))

	_, err := h.UpsertContact(context.Background(), testLead(), "")
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("error type = %T, want *AdapterError", err)
	}
	if adapterErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", adapterErr.StatusCode)
	}
	if adapterErr.Message != "rate limit exceeded" {
		t.Fatalf("message = %q", adapterErr.Message)
	}
}

func TestHubspotRequiresAPIKey(t *testing.T) {
	h := NewHubspot("")

	_, err := h.UpsertContact(context.Background(), testLead(), "")
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("error type = %T, want *AdapterError", err)
	}
	if adapterErr.StatusCode != 0 {
		t.Fatalf("status = %d, want 0 for local failure", adapterErr.StatusCode)
	}
}

func TestHubspotStageMapCoversAllStatuses(t *testing.T) {
	for status := domain.StatusPending; status <= domain.StatusUnqualified; status++ {
		if _, ok := hubspotStages[status]; !ok {
			t.Fatalf("no hubspot stage mapped for status %s", status)
		}
	}
}
