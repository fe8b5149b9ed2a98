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

const sfTestInstance = "https://example.my.salesforce.com"

func newTestSalesforce(t *testing.T) *Salesforce {
	t.Helper()
	s := NewSalesforce(sfTestInstance, "test-token")
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	httpmock.ActivateNonDefault(s.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return s
}

func TestSalesforceUpsertContactCreates(t *testing.T) {
	s := newTestSalesforce(t)

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, sfTestInstance+"/services/data/v59.0/sobjects/Contact",
		func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(raw, &captured); err != nil {
				t.Fatalf("invalid request body: %v", err)
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"003XYZ","success":true}`), nil
		})

	id, err := s.UpsertContact(context.Background(), testLead(), "")
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if id != "003XYZ" {
		t.Fatalf("contact id = %q, want 003XYZ", id)
	}
	if captured["LeadSource"] != "Referral" {
		t.Fatalf("LeadSource = %v, want Referral", captured["LeadSource"])
	}
}

func TestSalesforceUpsertContactPatchKeepsID(t *testing.T) {
	s := newTestSalesforce(t)

	// Salesforce PATCH responds 204 with an empty body.
	httpmock.RegisterResponder(http.MethodPatch, sfTestInstance+"/services/data/v59.0/sobjects/Contact/003XYZ",
		httpmock.NewStringResponder(http.StatusNoContent, ""))

	id, err := s.UpsertContact(context.Background(), testLead(), "003XYZ")
	if err != nil {
		t.Fatalf("UpsertContact: %v", err)
	}
	if id != "003XYZ" {
		t.Fatalf("contact id = %q, want 003XYZ", id)
	}
}

func TestSalesforceUpsertDealSetsStageAndProbability(t *testing.T) {
	s := newTestSalesforce(t)

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, sfTestInstance+"/services/data/v59.0/sobjects/Opportunity",
		func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(raw, &captured); err != nil {
				t.Fatalf("invalid request body: %v", err)
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"006ABC","success":true}`), nil
		})

	lead := testLead()
	lead.Status = domain.StatusNegotiating

	id, err := s.UpsertDeal(context.Background(), lead, "003XYZ", "")
	if err != nil {
		t.Fatalf("UpsertDeal: %v", err)
	}
	if id != "006ABC" {
		t.Fatalf("deal id = %q, want 006ABC", id)
	}
	if captured["StageName"] != "Negotiation/Review" {
		t.Fatalf("StageName = %v", captured["StageName"])
	}
	if captured["Probability"] != float64(75) {
		t.Fatalf("Probability = %v, want 75", captured["Probability"])
	}
	if captured["ContactId"] != "003XYZ" {
		t.Fatalf("ContactId = %v", captured["ContactId"])
	}
	// ASAP timeline projects one month out from the injected clock.
	if captured["CloseDate"] != "2026-04-01" {
		t.Fatalf("CloseDate = %v, want 2026-04-01", captured["CloseDate"])
	}
}

func TestSalesforceCreateNoteUsesTask(t *testing.T) {
	s := newTestSalesforce(t)

	var captured map[string]any
	httpmock.RegisterResponder(http.MethodPost, sfTestInstance+"/services/data/v59.0/sobjects/Task",
		func(req *http.Request) (*http.Response, error) {
			raw, _ := io.ReadAll(req.Body)
			if err := json.Unmarshal(raw, &captured); err != nil {
				t.Fatalf("invalid request body: %v", err)
			}
			return httpmock.NewStringResponse(http.StatusCreated, `{"id":"00TQQQ","success":true}`), nil
		})

	if err := s.CreateNote(context.Background(), testLead(), "003XYZ", "note body"); err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if captured["WhoId"] != "003XYZ" {
		t.Fatalf("WhoId = %v", captured["WhoId"])
	}
	// Score 91.25 is high priority.
	if captured["Priority"] != "High" {
		t.Fatalf("Priority = %v, want High", captured["Priority"])
	}
}

func TestSalesforceSurfacesErrorArray(t *testing.T) {
	s := newTestSalesforce(t)

	httpmock.RegisterResponder(http.MethodPost, sfTestInstance+"/services/data/v59.0/sobjects/Contact",
		httpmock.NewStringResponder(http.StatusBadRequest,
			`[{"message":"Required fields are missing: [LastName]","errorCode":"REQUIRED_FIELD_MISSING"}]`))

	_, err := s.UpsertContact(context.Background(), testLead(), "")
	var adapterErr *AdapterError
	if !errors.As(err, &adapterErr) {
		t.Fatalf("error type = %T, want *AdapterError", err)
	}
	if adapterErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", adapterErr.StatusCode)
	}
	if adapterErr.Message != "Required fields are missing: [LastName]" {
		t.Fatalf("message = %q", adapterErr.Message)
	}
}

func TestSalesforceStageMapCoversAllStatuses(t *testing.T) {
	for status := domain.StatusPending; status <= domain.StatusUnqualified; status++ {
		if _, ok := salesforceStages[status]; !ok {
			t.Fatalf("no salesforce stage mapped for status %s", status)
		}
	}
}

func TestEstimateDealValueDefaultsUnknownBudget(t *testing.T) {
	if got := EstimateDealValue("mystery"); got != 50000 {
		t.Fatalf("EstimateDealValue(mystery) = %d, want 50000", got)
	}
	if got := EstimateDealValue(domain.Budget250KPlus); got != 400000 {
		t.Fatalf("EstimateDealValue(250k_plus) = %d, want 400000", got)
	}
}
