package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/linkfinder-service/internal/delivery/http/request"
	"github.com/user/linkfinder-service/internal/delivery/http/response"
	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/internal/repository"
	"github.com/user/linkfinder-service/internal/usecase"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
	maxBodyBytes     = 1 << 20
)

// AuditService is the part of usecase.AuditService the handlers need.
type AuditService interface {
	StartRun(ctx context.Context, opts usecase.AuditOptions) (*entity.AuditRun, error)
	GetRun(ctx context.Context, id string, offset, limit int64) (*entity.AuditRun, []entity.LinkResult, error)
	CancelRun(ctx context.Context, id string) error
	Reprobe(ctx context.Context, url string, follow bool) (entity.ProbeResult, error)
}

// RewriteService is the part of usecase.RewriteUseCase the handlers need.
type RewriteService interface {
	Submit(ctx context.Context, items []entity.ReviewItem, policy entity.SelfPingPolicy) (entity.RewriteReport, error)
}

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type Handler struct {
	audits   AuditService
	rewrites RewriteService
	checks   map[string]PingFunc
}

func NewHandler(audits AuditService, rewrites RewriteService, checks map[string]PingFunc) *Handler {
	return &Handler{
		audits:   audits,
		rewrites: rewrites,
		checks:   checks,
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	healthStatus := map[string]string{"status": "ok"}
	healthy := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			healthStatus[name] = "unhealthy"
			healthy = false
			slog.Error("Health check failed", "dependency", name, "error", err)
			continue
		}
		healthStatus[name] = "healthy"
	}

	if !healthy {
		healthStatus["status"] = "degraded"
		h.writeJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	h.writeJSON(w, http.StatusOK, healthStatus)
}

func (h *Handler) HandleStartAudit(w http.ResponseWriter, r *http.Request) {
	var req request.StartAuditRequest
	if err := h.decode(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	run, err := h.audits.StartRun(r.Context(), usecase.AuditOptions{FollowRedirects: req.FollowRedirects})
	if err != nil {
		slog.Error("Failed to start audit", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.StartAuditResponse{
		Status:  "success",
		Message: "Audit started",
		RunID:   run.ID,
	})
}

func (h *Handler) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		h.writeJSONError(w, "offset must be a non-negative integer", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", defaultPageLimit)
	if err != nil || limit <= 0 {
		h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxPageLimit)

	run, results, err := h.audits.GetRun(r.Context(), id, offset, limit)
	if err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.writeJSONError(w, "Audit run not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get audit run", "run_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []entity.LinkResult{}
	}

	h.writeJSON(w, http.StatusOK, response.AuditRunResponse{
		AuditRun: *run,
		Percent:  run.Progress.Percent(),
		Offset:   offset,
		Limit:    limit,
		Results:  results,
	})
}

func (h *Handler) HandleCancelAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.audits.CancelRun(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrRunNotFound) {
			h.writeJSONError(w, "Audit run not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to cancel audit run", "run_id", id, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "success", "message": "Audit cancellation requested"})
}

func (h *Handler) HandleProbe(w http.ResponseWriter, r *http.Request) {
	var req request.ProbeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	u, err := url.ParseRequestURI(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.writeJSONError(w, "Invalid URL format", http.StatusBadRequest)
		return
	}

	// A transport failure is a valid answer; it is reported in the body.
	res, err := h.audits.Reprobe(r.Context(), req.URL, req.Follow)
	if err != nil && !errors.Is(err, repository.ErrTransportFailure) {
		slog.Error("Failed to probe URL", "url", req.URL, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ProbeResponse{URL: req.URL, ProbeResult: res})
}

func (h *Handler) HandleSubmitRewrites(w http.ResponseWriter, r *http.Request) {
	var req request.RewriteRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.SelfPings.Valid() {
		h.writeJSONError(w, "self_pings must be one of allow, avoid, unchanged", http.StatusBadRequest)
		return
	}

	report, err := h.rewrites.Submit(r.Context(), req.Edits, req.SelfPings)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidPolicy) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to submit rewrites", "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func queryInt(r *http.Request, key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
