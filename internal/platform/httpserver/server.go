package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	listingerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	listinghttp "bazaar/contexts/marketplace/listing-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "bazaar/internal/platform/httpserver/docs"
)

const accountHeader = "X-Account-Id"

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	listings   listingengine.Module
	metrics    http.Handler
	readiness  func(context.Context) error
	httpServer *http.Server
}

// New builds the API server. metrics may be nil, in which case /metrics is
// not mounted.
func New(
	listings listingengine.Module,
	metrics http.Handler,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		listings: listings,
		metrics:  metrics,
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.httpServer.Shutdown(ctx)
}

// SetReadinessCheck makes /healthz report 503 while check fails.
func (s *Server) SetReadinessCheck(check func(context.Context) error) {
	s.readiness = check
}

// EnableDevProvisioning mounts the development-only routes that register
// assets and credit balances. It fails when the module cannot be seeded.
func (s *Server) EnableDevProvisioning() error {
	if s.listings.Provisioning == nil {
		return errors.New("listing module has no provisioning backend")
	}
	s.mux.HandleFunc("POST /v1/dev/assets", s.handleRegisterAsset)
	s.mux.HandleFunc("POST /v1/dev/balances", s.handleCreditBalance)
	s.logger.Warn("dev provisioning routes enabled",
		"event", "http_dev_provisioning_enabled",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}

	s.mux.HandleFunc("POST /v1/listings", s.handleListAsset)
	s.mux.HandleFunc("GET /v1/listings/{listing_id}", s.handleGetListing)
	s.mux.HandleFunc("GET /v1/listings/{listing_id}/price", s.handleGetPrice)
	s.mux.HandleFunc("PUT /v1/listings/{listing_id}/price", s.handleUpdatePrice)
	s.mux.HandleFunc("POST /v1/listings/{listing_id}/purchase", s.handlePurchaseListing)
	s.mux.HandleFunc("POST /v1/listings/{listing_id}/unlist", s.handleUnlistAsset)
	s.mux.HandleFunc("PUT /v1/admin/fee-recipient", s.handleSetFeeRecipient)
	s.mux.HandleFunc("GET /v1/sellers", s.handleListSellers)
	s.mux.HandleFunc("GET /v1/sellers/{seller}/listings", s.handleListSellerListings)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.readiness != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.readiness(ctx); err != nil {
			s.logger.Warn("readiness check failed",
				"event", "http_readiness_failed",
				"module", "internal/platform/httpserver",
				"layer", "platform",
				"error", err.Error(),
			)
			writeListingError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "dependency unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req listinghttp.ListAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.listings.Handler.ListAssetHandler(r.Context(), caller, req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePurchaseListing(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req listinghttp.PurchaseListingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.listings.Handler.PurchaseListingHandler(r.Context(), caller, r.PathValue("listing_id"), req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnlistAsset(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req listinghttp.UnlistAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.listings.Handler.UnlistAssetHandler(r.Context(), caller, r.PathValue("listing_id"), req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req listinghttp.UpdatePriceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.listings.Handler.UpdatePriceHandler(r.Context(), caller, r.PathValue("listing_id"), req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetFeeRecipient(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req listinghttp.SetFeeRecipientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := s.listings.Handler.SetFeeRecipientHandler(r.Context(), caller, req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	resp, err := s.listings.Handler.GetListingHandler(r.Context(), r.PathValue("listing_id"))
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	currency := strings.TrimSpace(r.URL.Query().Get("currency"))
	if currency == "" {
		writeListingError(w, http.StatusBadRequest, "missing_currency", "currency query parameter is required")
		return
	}
	resp, err := s.listings.Handler.GetPriceHandler(r.Context(), r.PathValue("listing_id"), currency)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSellers(w http.ResponseWriter, r *http.Request) {
	resp, err := s.listings.Handler.ListSellersHandler(r.Context())
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSellerListings(w http.ResponseWriter, r *http.Request) {
	resp, err := s.listings.Handler.ListSellerListingsHandler(r.Context(), r.PathValue("seller"))
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	var req listinghttp.RegisterAssetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.listings.Handler.RegisterAssetHandler(r.Context(), req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleCreditBalance(w http.ResponseWriter, r *http.Request) {
	var req listinghttp.CreditBalanceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := s.listings.Handler.CreditBalanceHandler(r.Context(), req)
	if err != nil {
		writeListingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireCaller(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller := strings.TrimSpace(r.Header.Get(accountHeader))
	if caller == "" {
		writeListingError(w, http.StatusUnauthorized, "missing_account", accountHeader+" header is required")
		return "", false
	}
	return caller, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		writeListingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return false
	}
	return true
}

func writeListingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, listingerrors.ErrRollbackIncomplete):
		writeListingError(w, http.StatusInternalServerError, "rollback_incomplete", "operation failed and could not be fully rolled back")
	case errors.Is(err, listingerrors.ErrListingNotFound):
		writeListingError(w, http.StatusNotFound, "listing_not_found", err.Error())
	case errors.Is(err, listingerrors.ErrPriceNotFound):
		writeListingError(w, http.StatusNotFound, "price_not_found", err.Error())
	case errors.Is(err, listingerrors.ErrAssetNotFound):
		writeListingError(w, http.StatusNotFound, "asset_not_found", err.Error())
	case errors.Is(err, listingerrors.ErrNotFound):
		writeListingError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, listingerrors.ErrForbidden):
		writeListingError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, listingerrors.ErrUnauthorized):
		writeListingError(w, http.StatusUnauthorized, "admin_config_missing", err.Error())
	case errors.Is(err, listingerrors.ErrInsufficientBalance):
		writeListingError(w, http.StatusPaymentRequired, "insufficient_balance", err.Error())
	case errors.Is(err, listingerrors.ErrInvalidInput):
		writeListingError(w, http.StatusBadRequest, "invalid_input", err.Error())
	default:
		writeListingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeListingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, listinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
