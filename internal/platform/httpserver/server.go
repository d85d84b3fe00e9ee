package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	vestingengine "tokenvest/contexts/token-economics/vesting-engine"
	domainerrors "tokenvest/contexts/token-economics/vesting-engine/domain/errors"
	vestinghttp "tokenvest/contexts/token-economics/vesting-engine/transport/http"

	"github.com/cockroachdb/errors"
)

type Options struct {
	// ClaimsPerMinute bounds claim attempts per beneficiary identity.
	ClaimsPerMinute int
}

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	vesting vestingengine.Module
	claims  *identityLimiter
	http    *http.Server
}

func New(vesting vestingengine.Module, logger *slog.Logger, addr string, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}
	if opts.ClaimsPerMinute <= 0 {
		opts.ClaimsPerMinute = 30
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		vesting: vesting,
		claims:  newIdentityLimiter(opts.ClaimsPerMinute),
	}
	s.registerRoutes()
	s.http = &http.Server{
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
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /v1/vesting/accounts", s.handleCreateAccount)
	s.mux.HandleFunc("GET /v1/vesting/accounts/{account_id}", s.handleGetAccount)
	s.mux.HandleFunc("POST /v1/vesting/accounts/{account_id}/release", s.handleReleaseAccount)
	s.mux.HandleFunc("POST /v1/vesting/accounts/{account_id}/beneficiaries/{identity}/confirm", s.handleConfirmRound)
	s.mux.HandleFunc("POST /v1/vesting/accounts/{account_id}/claim", s.handleClaim)
	s.mux.HandleFunc("GET /v1/vesting/accounts/{account_id}/beneficiaries/{identity}/schedule", s.handleSchedule)
	s.mux.HandleFunc("GET /v1/vesting/accounts/{account_id}/beneficiaries/{identity}/claims", s.handleListReceipts)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vestinghttp.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVestingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.vesting.Handler.CreateAccountHandler(r.Context(), userID, r.Header.Get("Idempotency-Key"), req)
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vesting.Handler.GetAccountHandler(r.Context(), r.PathValue("account_id"))
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReleaseAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := s.vesting.Handler.ReleaseAccountHandler(r.Context(), r.PathValue("account_id"), userID)
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirmRound(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req vestinghttp.ConfirmRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeVestingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.vesting.Handler.ConfirmRoundHandler(
		r.Context(),
		r.PathValue("account_id"),
		userID,
		r.PathValue("identity"),
		req,
	)
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !s.claims.Allow(userID) {
		s.logger.Warn("claim rate limited",
			"event", "http_claim_rate_limited",
			"module", "internal/platform/httpserver",
			"layer", "platform",
			"identity", userID,
		)
		writeVestingError(w, http.StatusTooManyRequests, "rate_limited", "too many claim attempts")
		return
	}

	// An empty body claims to the default wallet.
	var req vestinghttp.ClaimRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeVestingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}

	resp, err := s.vesting.Handler.ClaimHandler(
		r.Context(),
		r.PathValue("account_id"),
		userID,
		r.Header.Get("Idempotency-Key"),
		req,
	)
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vesting.Handler.ScheduleHandler(r.Context(), r.PathValue("account_id"), r.PathValue("identity"))
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.vesting.Handler.ListReceiptsHandler(r.Context(), r.PathValue("account_id"), r.PathValue("identity"))
	if err != nil {
		writeVestingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if userID == "" {
		writeVestingError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

func writeVestingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsAny(err,
		domainerrors.ErrAccountNotFound,
		domainerrors.ErrBeneficiaryNotFound,
		domainerrors.ErrReceiptNotFound):
		writeVestingError(w, http.StatusNotFound, "not_found", err.Error())
	case domainerrors.IsConfiguration(err):
		writeVestingError(w, http.StatusUnprocessableEntity, "invalid_configuration", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidRequest),
		errors.Is(err, domainerrors.ErrInvalidRound):
		writeVestingError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domainerrors.ErrIdempotencyKeyMissing):
		writeVestingError(w, http.StatusBadRequest, "idempotency_key_required", err.Error())
	case errors.Is(err, domainerrors.ErrInvalidSender):
		writeVestingError(w, http.StatusForbidden, "invalid_sender", err.Error())
	case errors.Is(err, domainerrors.ErrNotActive):
		writeVestingError(w, http.StatusConflict, "not_active", err.Error())
	case errors.Is(err, domainerrors.ErrAlreadyActive):
		writeVestingError(w, http.StatusConflict, "already_active", err.Error())
	case errors.Is(err, domainerrors.ErrAccountExists):
		writeVestingError(w, http.StatusConflict, "account_exists", err.Error())
	case errors.Is(err, domainerrors.ErrIdempotencyKeyConflict):
		writeVestingError(w, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, domainerrors.ErrInsufficientCustody):
		writeVestingError(w, http.StatusConflict, "insufficient_custody", err.Error())
	case errors.Is(err, domainerrors.ErrLockupNotExpired):
		writeVestingError(w, http.StatusUnprocessableEntity, "lockup_not_expired", err.Error())
	case errors.Is(err, domainerrors.ErrClaimNotAllowed):
		writeVestingError(w, http.StatusUnprocessableEntity, "claim_not_allowed", err.Error())
	case errors.Is(err, domainerrors.ErrOverflow):
		writeVestingError(w, http.StatusUnprocessableEntity, "overflow", err.Error())
	default:
		writeVestingError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeVestingError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, vestinghttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
