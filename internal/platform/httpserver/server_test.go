package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	campaignservice "shepherd/contexts/giving/campaign-service"
	"shepherd/contexts/giving/campaign-service/domain/entities"
	givinghttp "shepherd/contexts/giving/campaign-service/transport/http"
)

func newTestServer() *Server {
	module := campaignservice.NewInMemoryModule(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return New(module, slog.New(slog.NewTextHandler(io.Discard, nil)), ":0")
}

func campaignBody() []byte {
	today := time.Now().UTC()
	return []byte(fmt.Sprintf(
		`{"name":"Roof Fund","goal_amount":10000,"start_date":"%s","end_date":"%s"}`,
		entities.FormatDate(today),
		entities.FormatDate(today.AddDate(0, 1, 0)),
	))
}

func doJSON(t *testing.T, server *Server, method string, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func orgHeaders(extra map[string]string) map[string]string {
	headers := map[string]string{"X-Organization-Id": "org-1"}
	for key, value := range extra {
		headers[key] = value
	}
	return headers
}

func TestCampaignRoutesRequireOrganization(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", campaignBody(), map[string]string{"Idempotency-Key": "k1"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp givinghttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "organization_required" {
		t.Fatalf("expected organization_required, got %s", resp.Code)
	}
}

func TestCreateCampaignValidationErrorShape(t *testing.T) {
	server := newTestServer()

	body := []byte(`{"name":"","start_date":"2020-01-01"}`)
	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", body, orgHeaders(map[string]string{"Idempotency-Key": "k1"}))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp givinghttp.ValidationErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode validation response: %v", err)
	}
	if resp.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %s", resp.Code)
	}
	if resp.Fields["name"] != entities.CodeRequired {
		t.Fatalf("expected name required, got %q", resp.Fields["name"])
	}
	if resp.Fields["goal_amount"] != entities.CodeGoalRequired {
		t.Fatalf("expected goal_required, got %q", resp.Fields["goal_amount"])
	}
	if resp.Fields["start_date"] != entities.CodeStartInPast {
		t.Fatalf("expected start_in_past, got %q", resp.Fields["start_date"])
	}
}

func TestCreateCampaignRejectsMalformedDate(t *testing.T) {
	server := newTestServer()

	body := []byte(`{"name":"Roof Fund","no_goal":true,"start_date":"09/01/2026"}`)
	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", body, orgHeaders(map[string]string{"Idempotency-Key": "k1"}))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}

	var resp givinghttp.ValidationErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode validation response: %v", err)
	}
	if resp.Fields["start_date"] != "invalid_date" {
		t.Fatalf("expected invalid_date, got %q", resp.Fields["start_date"])
	}
}

func TestCreateAndGetCampaign(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", campaignBody(), orgHeaders(map[string]string{"Idempotency-Key": "k1"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	var created givinghttp.CreateCampaignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Campaign.Status != string(entities.DisplayStatusActive) {
		t.Fatalf("expected active, got %s", created.Campaign.Status)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/giving/v1/campaigns/"+created.Campaign.CampaignID, nil, orgHeaders(nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// A foreign organization cannot see the campaign.
	rr = doJSON(t, server, http.MethodGet, "/api/giving/v1/campaigns/"+created.Campaign.CampaignID, nil, map[string]string{"X-Organization-Id": "org-2"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign org, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateCampaignReplayReturns200(t *testing.T) {
	server := newTestServer()
	body := campaignBody()

	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", body, orgHeaders(map[string]string{"Idempotency-Key": "same"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", body, orgHeaders(map[string]string{"Idempotency-Key": "same"}))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestDeleteFundedCampaignConflict(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", campaignBody(), orgHeaders(map[string]string{"Idempotency-Key": "k1"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created givinghttp.CreateCampaignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	contribution := []byte(fmt.Sprintf(`{"campaign_id":"%s","donor_name":"Dorcas","amount":100}`, created.Campaign.CampaignID))
	rr = doJSON(t, server, http.MethodPost, "/api/giving/v1/contributions", contribution, orgHeaders(map[string]string{"Idempotency-Key": "gift-1"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var recorded givinghttp.RecordContributionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &recorded); err != nil {
		t.Fatalf("decode contribution response: %v", err)
	}

	webhook := []byte(fmt.Sprintf(`{"order_id":"%s","transaction_status":"settlement"}`, recorded.Contribution.OrderID))
	rr = doJSON(t, server, http.MethodPost, "/api/giving/v1/payments/webhook", webhook, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodDelete, "/api/giving/v1/campaigns/"+created.Campaign.CampaignID, nil, orgHeaders(nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	var resp givinghttp.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "campaign_has_contributions" {
		t.Fatalf("expected campaign_has_contributions, got %s", resp.Code)
	}
}

func TestWebhookUnknownOrderReturns404(t *testing.T) {
	server := newTestServer()

	body := []byte(`{"order_id":"GIVE-unknown","transaction_status":"settlement"}`)
	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/payments/webhook", body, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestActivateDeactivateRoundTrip(t *testing.T) {
	server := newTestServer()

	rr := doJSON(t, server, http.MethodPost, "/api/giving/v1/campaigns", campaignBody(), orgHeaders(map[string]string{"Idempotency-Key": "k1"}))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created givinghttp.CreateCampaignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	base := "/api/giving/v1/campaigns/" + created.Campaign.CampaignID

	rr = doJSON(t, server, http.MethodPost, base+"/deactivate", []byte(`{"reason":"season over"}`), orgHeaders(map[string]string{"X-User-Id": "user-1"}))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, base, nil, orgHeaders(nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	var got givinghttp.GetCampaignResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode get response: %v", err)
	}
	if got.Campaign.Status != string(entities.DisplayStatusInactive) {
		t.Fatalf("expected inactive, got %s", got.Campaign.Status)
	}

	// Body is optional on activation flips.
	rr = doJSON(t, server, http.MethodPost, base+"/activate", nil, orgHeaders(map[string]string{"X-User-Id": "user-1"}))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}
}
