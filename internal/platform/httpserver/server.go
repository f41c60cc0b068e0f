package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	campaignservice "shepherd/contexts/giving/campaign-service"
	givingerrors "shepherd/contexts/giving/campaign-service/domain/errors"
	givinghttp "shepherd/contexts/giving/campaign-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "shepherd/internal/platform/httpserver/docs"
)

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	giving campaignservice.Module
}

func New(giving campaignservice.Module, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		giving: giving,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routing table for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /api/giving/v1/campaigns", s.handleCreateCampaign)
	s.mux.HandleFunc("GET /api/giving/v1/campaigns", s.handleListCampaigns)
	s.mux.HandleFunc("GET /api/giving/v1/campaigns/{campaign_id}", s.handleGetCampaign)
	s.mux.HandleFunc("PUT /api/giving/v1/campaigns/{campaign_id}", s.handleUpdateCampaign)
	s.mux.HandleFunc("POST /api/giving/v1/campaigns/{campaign_id}/activate", s.handleActivateCampaign)
	s.mux.HandleFunc("POST /api/giving/v1/campaigns/{campaign_id}/deactivate", s.handleDeactivateCampaign)
	s.mux.HandleFunc("DELETE /api/giving/v1/campaigns/{campaign_id}", s.handleDeleteCampaign)
	s.mux.HandleFunc("GET /api/giving/v1/campaigns/{campaign_id}/contributions", s.handleListContributions)
	s.mux.HandleFunc("POST /api/giving/v1/contributions", s.handleRecordContribution)
	s.mux.HandleFunc("POST /api/giving/v1/payments/webhook", s.handlePaymentWebhook)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	var req givinghttp.CampaignPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGivingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.giving.Handler.CreateCampaignHandler(
		r.Context(),
		organizationID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	resp, err := s.giving.Handler.ListCampaignsHandler(r.Context(), organizationID, r.URL.Query().Get("status"))
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	resp, err := s.giving.Handler.GetCampaignHandler(r.Context(), organizationID, r.PathValue("campaign_id"))
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	var req givinghttp.CampaignPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGivingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.giving.Handler.UpdateCampaignHandler(
		r.Context(),
		organizationID,
		r.PathValue("campaign_id"),
		req,
	)
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActivateCampaign(w http.ResponseWriter, r *http.Request) {
	s.handleSetActive(w, r, true)
}

func (s *Server) handleDeactivateCampaign(w http.ResponseWriter, r *http.Request) {
	s.handleSetActive(w, r, false)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request, active bool) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	// The reason body is optional for activation flips.
	var req givinghttp.StatusActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeGivingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	actorID := r.Header.Get("X-User-Id")
	campaignID := r.PathValue("campaign_id")
	var err error
	if active {
		err = s.giving.Handler.ActivateCampaignHandler(r.Context(), organizationID, actorID, campaignID, req.Reason)
	} else {
		err = s.giving.Handler.DeactivateCampaignHandler(r.Context(), organizationID, actorID, campaignID, req.Reason)
	}
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	if err := s.giving.Handler.DeleteCampaignHandler(r.Context(), organizationID, r.PathValue("campaign_id")); err != nil {
		writeGivingDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	resp, err := s.giving.Handler.ListContributionsHandler(r.Context(), organizationID, r.PathValue("campaign_id"))
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	organizationID := resolveOrganizationID(r)
	if organizationID == "" {
		writeGivingError(w, http.StatusUnauthorized, "organization_required", "X-Organization-Id header is required")
		return
	}

	var req givinghttp.ContributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGivingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.giving.Handler.RecordContributionHandler(
		r.Context(),
		organizationID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeGivingDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// handlePaymentWebhook answers the payment processor, not a browser. The
// processor retries anything but 200, so the surface is 200, 404, or 500.
func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req givinghttp.WebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGivingError(w, http.StatusInternalServerError, "internal_error", "request body must be valid JSON")
		return
	}

	resp, err := s.giving.Handler.PaymentWebhookHandler(r.Context(), req)
	if err != nil {
		if errors.Is(err, givingerrors.ErrContributionNotFound) {
			writeGivingError(w, http.StatusNotFound, "contribution_not_found", err.Error())
			return
		}
		writeGivingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGivingDomainError(w http.ResponseWriter, err error) {
	var fieldErrs givingerrors.FieldErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusUnprocessableEntity, givinghttp.ValidationErrorResponse{
			Code:    "validation_failed",
			Message: fieldErrs.Error(),
			Fields:  fieldErrs,
		})
		return
	}

	switch {
	case errors.Is(err, givingerrors.ErrCampaignNotFound):
		writeGivingError(w, http.StatusNotFound, "campaign_not_found", err.Error())
	case errors.Is(err, givingerrors.ErrContributionNotFound):
		writeGivingError(w, http.StatusNotFound, "contribution_not_found", err.Error())
	case errors.Is(err, givingerrors.ErrCampaignHasContributions):
		writeGivingError(w, http.StatusConflict, "campaign_has_contributions", err.Error())
	case errors.Is(err, givingerrors.ErrIdempotencyKeyConflict):
		writeGivingError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, givingerrors.ErrIdempotencyKeyRequired):
		writeGivingError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, givingerrors.ErrOrganizationRequired):
		writeGivingError(w, http.StatusUnauthorized, "organization_required", err.Error())
	default:
		writeGivingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeGivingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, givinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func resolveOrganizationID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Organization-Id"))
}
