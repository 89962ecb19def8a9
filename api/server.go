// api/server.go

// HTTP REST API for the staking vault

// Mutating operations are POSTs with JSON bodies; queries are GETs keyed by
// address or position id. Uses Gorilla Mux for routing, includes CORS
// support, request logging and a global rate limit. Domain errors map onto
// HTTP status codes in one place, so handlers stay thin.

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/whaleden-mjtd/maitme-contracts-staking/config"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/position"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/tiers"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/treasury"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/vault"
	"github.com/whaleden-mjtd/maitme-contracts-staking/core/withdrawal"
)

// Server represents the HTTP API server
type Server struct {
	vault   *vault.Vault
	cfg     config.APIConfig
	router  *mux.Router
	server  *http.Server
	limiter *rate.Limiter
}

// NewServer creates a new API server
func NewServer(v *vault.Vault, cfg config.APIConfig) *Server {
	server := &Server{
		vault: v,
		cfg:   cfg,
	}

	// A rate limit of 0 disables limiting entirely
	if cfg.RateLimit > 0 {
		server.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Staking operations
	api.HandleFunc("/stake", s.postStake).Methods("POST")
	api.HandleFunc("/claim", s.postClaim).Methods("POST")
	api.HandleFunc("/claim-all", s.postClaimAll).Methods("POST")

	// Withdrawal workflow
	api.HandleFunc("/withdrawals/request", s.postRequestWithdraw).Methods("POST")
	api.HandleFunc("/withdrawals/cancel", s.postCancelWithdraw).Methods("POST")
	api.HandleFunc("/withdrawals/execute", s.postExecuteWithdraw).Methods("POST")

	// Account endpoints
	api.HandleFunc("/account/{address}/positions", s.getPositions).Methods("GET")
	api.HandleFunc("/account/{address}/reward", s.getAccountReward).Methods("GET")
	api.HandleFunc("/account/{address}/withdrawals", s.getWithdrawals).Methods("GET")

	// Position endpoints
	api.HandleFunc("/position/{id}", s.getPosition).Methods("GET")
	api.HandleFunc("/position/{id}/reward", s.getPositionReward).Methods("GET")
	api.HandleFunc("/position/{id}/tier", s.getPositionTier).Methods("GET")

	// Admin endpoints
	api.HandleFunc("/admin/transfer", s.postAdminTransfer).Methods("POST")
	api.HandleFunc("/admin/treasury/deposit", s.postTreasuryDeposit).Methods("POST")
	api.HandleFunc("/admin/treasury/withdraw", s.postTreasuryWithdraw).Methods("POST")
	api.HandleFunc("/admin/rates", s.postUpdateRates).Methods("POST")
	api.HandleFunc("/admin/emergency", s.postEmergency).Methods("POST")
	api.HandleFunc("/admin/emergency/drain", s.postEmergencyDrain).Methods("POST")

	// Status endpoints
	api.HandleFunc("/tiers", s.getTiers).Methods("GET")
	api.HandleFunc("/treasury", s.getTreasury).Methods("GET")
	api.HandleFunc("/status", s.getStatus).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")

	if s.cfg.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		s.router.Use(c.Handler)
	}

	s.router.Use(s.rateLimitMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("API server listening on %s", s.cfg.ListenAddr)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Close()
	}
	return nil
}

// Handler exposes the router, for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Staking operations

type stakeRequest struct {
	Address string `json:"address"`
	Amount  int64  `json:"amount"`
}

func (s *Server) postStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if !s.decode(w, r, &req) {
		return
	}

	id, err := s.vault.Stake(req.Address, req.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"position_id": id,
		"address":     req.Address,
		"amount":      req.Amount,
	})
}

type claimRequest struct {
	Address    string `json:"address"`
	PositionID uint64 `json:"position_id"`
}

func (s *Server) postClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !s.decode(w, r, &req) {
		return
	}

	reward, err := s.vault.Claim(req.Address, req.PositionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"position_id": req.PositionID,
		"reward":      reward,
	})
}

type claimAllRequest struct {
	Address string `json:"address"`
}

func (s *Server) postClaimAll(w http.ResponseWriter, r *http.Request) {
	var req claimAllRequest
	if !s.decode(w, r, &req) {
		return
	}

	reward, err := s.vault.ClaimAll(req.Address)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address": req.Address,
		"reward":  reward,
	})
}

// Withdrawal workflow

type withdrawRequest struct {
	Address    string `json:"address"`
	PositionID uint64 `json:"position_id"`
	Amount     int64  `json:"amount"`
}

func (s *Server) postRequestWithdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if !s.decode(w, r, &req) {
		return
	}

	pending, err := s.vault.RequestWithdraw(req.Address, req.PositionID, req.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, pending)
}

func (s *Server) postCancelWithdraw(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.vault.CancelWithdraw(req.Address, req.PositionID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"position_id": req.PositionID,
		"cancelled":   true,
	})
}

func (s *Server) postExecuteWithdraw(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !s.decode(w, r, &req) {
		return
	}

	receipt, err := s.vault.ExecuteWithdraw(req.Address, req.PositionID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, receipt)
}

// Account endpoints

func (s *Server) getPositions(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	positions, err := s.vault.Positions(address)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address":   address,
		"positions": positions,
		"count":     len(positions),
	})
}

func (s *Server) getAccountReward(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	reward, err := s.vault.AccountReward(address)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address": address,
		"reward":  reward,
	})
}

func (s *Server) getWithdrawals(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]
	activeOnly := r.URL.Query().Get("active") == "true"

	requests, err := s.vault.WithdrawalRequests(address, activeOnly)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"address":  address,
		"requests": requests,
		"count":    len(requests),
	})
}

// Position endpoints

func (s *Server) positionID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, "Invalid position id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) getPosition(w http.ResponseWriter, r *http.Request) {
	id, ok := s.positionID(w, r)
	if !ok {
		return
	}

	pos, err := s.vault.Position(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, pos)
}

func (s *Server) getPositionReward(w http.ResponseWriter, r *http.Request) {
	id, ok := s.positionID(w, r)
	if !ok {
		return
	}

	reward, err := s.vault.UnclaimedReward(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"position_id": id,
		"reward":      reward,
	})
}

func (s *Server) getPositionTier(w http.ResponseWriter, r *http.Request) {
	id, ok := s.positionID(w, r)
	if !ok {
		return
	}

	tier, err := s.vault.CurrentTier(id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	band, err := s.vault.TierConfig(tier)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"position_id": id,
		"tier":        tier,
		"rate":        band.Rate,
	})
}

// Admin endpoints

type adminTransferRequest struct {
	Caller     string `json:"caller"`
	From       string `json:"from"`
	PositionID uint64 `json:"position_id"`
	To         string `json:"to"`
}

func (s *Server) postAdminTransfer(w http.ResponseWriter, r *http.Request) {
	var req adminTransferRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.vault.AdminTransfer(req.Caller, req.From, req.PositionID, req.To); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"position_id": req.PositionID,
		"from":        req.From,
		"to":          req.To,
	})
}

type treasuryRequest struct {
	Caller string `json:"caller"`
	Amount int64  `json:"amount"`
}

func (s *Server) postTreasuryDeposit(w http.ResponseWriter, r *http.Request) {
	var req treasuryRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.vault.DepositTreasury(req.Caller, req.Amount); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"balance": s.vault.TreasuryBalance()})
}

func (s *Server) postTreasuryWithdraw(w http.ResponseWriter, r *http.Request) {
	var req treasuryRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.vault.WithdrawTreasury(req.Caller, req.Amount); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"balance": s.vault.TreasuryBalance()})
}

type ratesRequest struct {
	Caller string                 `json:"caller"`
	Rates  [tiers.TierCount]int64 `json:"rates"`
}

func (s *Server) postUpdateRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.vault.UpdateTierRates(req.Caller, req.Rates); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"rates": req.Rates})
}

type emergencyRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address,omitempty"`
}

func (s *Server) postEmergency(w http.ResponseWriter, r *http.Request) {
	var req emergencyRequest
	if !s.decode(w, r, &req) {
		return
	}

	if err := s.vault.SetEmergency(req.Caller); err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, map[string]interface{}{"emergency": true})
}

func (s *Server) postEmergencyDrain(w http.ResponseWriter, r *http.Request) {
	var req emergencyRequest
	if !s.decode(w, r, &req) {
		return
	}

	receipt, err := s.vault.EmergencyDrain(req.Caller, req.Address)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, receipt)
}

// Status endpoints

func (s *Server) getTiers(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{"tiers": s.vault.TierSchedule()})
}

func (s *Server) getTreasury(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"balance":      s.vault.TreasuryBalance(),
		"total_staked": s.vault.TotalStaked(),
	})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.vault.Status())
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"emergency": s.vault.EmergencyActive(),
	})
}

// Helper methods

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	})
}

// writeDomainError maps domain sentinels onto HTTP status codes
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, position.ErrUnknownPosition):
		status = http.StatusNotFound
	case errors.Is(err, vault.ErrUnauthorized),
		errors.Is(err, position.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, vault.ErrEmergencyActive),
		errors.Is(err, vault.ErrNotEmergency),
		errors.Is(err, vault.ErrPendingWithdrawal),
		errors.Is(err, withdrawal.ErrDuplicatePending),
		errors.Is(err, withdrawal.ErrPendingCapReached),
		errors.Is(err, withdrawal.ErrNotPending),
		errors.Is(err, withdrawal.ErrNoticePeriod),
		errors.Is(err, position.ErrTooManyPositions),
		errors.Is(err, treasury.ErrInsufficientTreasury):
		status = http.StatusConflict
	case errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, vault.ErrInvalidAddress),
		errors.Is(err, vault.ErrSelfTransfer),
		errors.Is(err, vault.ErrSubFloorRemainder),
		errors.Is(err, vault.ErrNoPositions),
		errors.Is(err, position.ErrBelowMinimum),
		errors.Is(err, treasury.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrCustodian):
		status = http.StatusBadGateway
	}

	s.writeError(w, err.Error(), status)
}

// Middleware

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.writeError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, lrw.statusCode, duration)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
