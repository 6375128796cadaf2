package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/paracipher/coverage_layer/internal/app"
	"github.com/paracipher/coverage_layer/internal/app/domain/ledger"
	"github.com/paracipher/coverage_layer/internal/app/domain/user"
	"github.com/paracipher/coverage_layer/internal/app/services/auth"
	"github.com/paracipher/coverage_layer/internal/app/services/claims"
	"github.com/paracipher/coverage_layer/internal/app/services/policies"
	"github.com/paracipher/coverage_layer/internal/app/services/wallet"
	"github.com/paracipher/coverage_layer/internal/app/storage"
	"github.com/paracipher/coverage_layer/internal/app/storage/memory"
	"github.com/paracipher/coverage_layer/pkg/logger"
)

const (
	serviceName    = "ParaCipher Coverage Layer"
	serviceVersion = "1.0.0"
)

// Options tunes the HTTP layer.
type Options struct {
	// AuditMaxEntries bounds the in-memory audit window.
	AuditMaxEntries int

	// AuditLogPath, when set, appends audit entries to a JSONL file.
	AuditLogPath string
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	audit *auditLog
	log   *logger.Logger
}

// NewHandler returns the REST surface for the coverage services. Every
// request is recorded in the audit log.
func NewHandler(application *app.Application, opts Options, log *logger.Logger) (http.Handler, error) {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	sink, err := newFileAuditSink(opts.AuditLogPath)
	if err != nil {
		return nil, err
	}
	var persist auditSink
	if sink != nil {
		persist = sink
	}

	h := &handler{
		app:   application,
		audit: newAuditLog(opts.AuditMaxEntries, persist),
		log:   log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.root)
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/auth/logout", h.logout)
	mux.HandleFunc("/onboarding/complete", h.onboardingComplete)
	mux.HandleFunc("/onboarding/status", h.onboardingStatus)
	mux.HandleFunc("/policy", h.policies)
	mux.HandleFunc("/policy/", h.policyResources)
	mux.HandleFunc("/claims", h.claims)
	mux.HandleFunc("/claims/", h.claimResources)
	mux.HandleFunc("/history", h.history)
	mux.HandleFunc("/history/", h.historyByType)
	mux.HandleFunc("/reputation", h.reputation)
	mux.HandleFunc("/reputation/update", h.reputationUpdate)
	mux.HandleFunc("/wallet", h.wallet)
	mux.HandleFunc("/wallet/balance", h.walletBalance)
	mux.HandleFunc("/wallet/fund", h.walletFund)
	mux.HandleFunc("/notifications", h.notifications)
	mux.HandleFunc("/notifications/", h.notificationResources)
	mux.HandleFunc("/api/home", h.home)
	mux.HandleFunc("/api/settings/reset", h.reset)
	mux.HandleFunc("/api/health", h.health)
	mux.HandleFunc("/api/audit", h.auditEntries)

	return h.withAudit(mux), nil
}

// withAudit records every request with its principal and final status.
func (h *handler) withAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		userID, err := h.principal(r)
		if err != nil {
			userID = ""
		}
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			UserID:     userID,
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     rec.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// principal resolves the acting user. A bearer token must match a live
// session; without one the demo falls back to the seeded user.
func (h *handler) principal(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return memory.SeedUserID, nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", auth.ErrInvalidToken
	}
	return h.app.Auth.Authenticate(r.Context(), token)
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeErrorMessage(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to " + serviceName,
		"version": serviceVersion,
		"health":  "/api/health",
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		WalletAddress string `json:"walletAddress"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Auth.Login(r.Context(), payload.WalletAddress)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.app.Auth.Logout(r.Context(), payload.Token); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (h *handler) onboardingComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var payload struct {
		KYCStatus string `json:"kycStatus"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Onboarding.Complete(r.Context(), userID, user.KYCStatus(payload.KYCStatus))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			h.writeServiceError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": updated})
}

func (h *handler) onboardingStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	status, err := h.app.Onboarding.GetStatus(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) policies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	list, err := h.app.Policies.List(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"policies": list,
		"count":    len(list),
	})
}

func (h *handler) policyResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/policy"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case parts[0] == "purchase" && len(parts) == 1:
		h.policyPurchase(w, r)
	case parts[0] == "active" && len(parts) == 2 && parts[1] == "current":
		h.policyActive(w, r)
	case len(parts) == 1:
		h.policyByID(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) policyPurchase(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var payload struct {
		DurationHours int `json:"durationHours"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Policies.Purchase(r.Context(), userID, payload.DurationHours)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) policyActive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	active, ok, err := h.app.Policies.ActivePolicy(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"policy":      nil,
			"shiftStatus": "inactive",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"policy":      active,
		"shiftStatus": "active",
	})
}

func (h *handler) policyByID(w http.ResponseWriter, r *http.Request, policyID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, err := h.app.Policies.Get(r.Context(), policyID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) claims(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	list, err := h.app.Claims.ListUserClaims(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"claims": list,
		"count":  len(list),
	})
}

func (h *handler) claimResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/claims"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 1 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if parts[0] == "simulate" {
		h.claimSimulate(w, r)
		return
	}
	h.claimByID(w, r, parts[0])
}

func (h *handler) claimSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var payload struct {
		Description string `json:"description"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if payload.Description == "" {
		payload.Description = "Shift incident claim"
	}

	result, err := h.app.Claims.Simulate(r.Context(), userID, payload.Description)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) claimByID(w http.ResponseWriter, r *http.Request, claimID string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	c, err := h.app.Claims.Get(r.Context(), claimID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	filter := r.URL.Query().Get("filter")
	txs, err := h.app.History.List(r.Context(), userID, ledger.Type(filter))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	label := filter
	if label == "" {
		label = "all"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"count":        len(txs),
		"filter":       label,
	})
}

func (h *handler) historyByType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/history"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] != "type" || parts[1] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	txType := ledger.Type(parts[1])
	txs, err := h.app.History.List(r.Context(), userID, txType)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs,
		"type":         txType,
		"count":        len(txs),
	})
}

func (h *handler) reputation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	report, err := h.app.Reputation.Get(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *handler) reputationUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	result, err := h.app.Reputation.Update(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Reputation updated",
		"sbtScore": result.NewScore,
		"change":   result.Delta,
	})
}

func (h *handler) wallet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	info, err := h.app.Wallet.GetInfo(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (h *handler) walletBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	balance, err := h.app.Wallet.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *handler) walletFund(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.app.Wallet.Fund(r.Context(), userID, payload.Amount)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) notifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	list, err := h.app.Notifications.List(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	unread := 0
	for _, n := range list {
		if !n.Read {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": list,
		"count":         len(list),
		"unreadCount":   unread,
	})
}

func (h *handler) notificationResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/notifications"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "read" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	updated, err := h.app.Notifications.MarkRead(r.Context(), parts[0])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) home(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID, err := h.principal(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	view, err := h.app.Demo.Home(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) reset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	seeded, err := h.app.Demo.Reset(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Demo state reset successfully",
		"newBalance": seeded.Balance,
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		limit = n
	}
	entries := h.audit.listLimit(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// writeServiceError maps domain sentinels onto HTTP status codes.
func (h *handler) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, policies.ErrInsufficientBalance),
		errors.Is(err, policies.ErrInvalidDuration),
		errors.Is(err, claims.ErrNoActivePolicy),
		errors.Is(err, wallet.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		status = http.StatusUnauthorized
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	writeError(w, status, err)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeError(w, status, errors.New(msg))
}
