package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
	"github.com/okolin/scribe/internal/observability/metrics"
)

// Dispatcher is the slice of the conversation use case the transport needs.
type Dispatcher interface {
	Dispatch(ctx context.Context, req domain.ChatRequest) (domain.DispatchResult, error)
	DispatchAsync(ctx context.Context, req domain.ChatRequest) (domain.DispatchResult, error)
	EndSession(sessionID string)
}

type RouterOptions struct {
	Metrics        *metrics.HTTPServerMetrics
	ServiceName    string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	dispatcher Dispatcher
	artifacts  ports.ArtifactIndex
	runs       ports.RunStore
	options    RouterOptions
}

func NewRouter(dispatcher Dispatcher, artifacts ports.ArtifactIndex, runs ports.RunStore, options RouterOptions) *Router {
	if options.ServiceName == "" {
		options.ServiceName = "api"
	}
	return &Router{
		dispatcher: dispatcher,
		artifacts:  artifacts,
		runs:       runs,
		options:    options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/messages", rt.postMessage)
	mux.HandleFunc("/v1/artifacts/", rt.getArtifactByID)
	mux.HandleFunc("/v1/runs/", rt.getRunByID)
	mux.HandleFunc("/v1/sessions/", rt.endSession)
	if rt.options.Metrics != nil {
		mux.Handle("/metrics", rt.options.Metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.options.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxInFlight, 0)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware(rt.options.ServiceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type messageRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Async     bool   `json:"async"`
}

func (rt *Router) postMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	if strings.TrimSpace(req.SessionID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id is required"})
		return
	}

	chatReq := domain.ChatRequest{
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Text:      req.Text,
	}

	var result domain.DispatchResult
	var err error
	if req.Async {
		result, err = rt.dispatcher.DispatchAsync(r.Context(), chatReq)
	} else {
		result, err = rt.dispatcher.Dispatch(r.Context(), chatReq)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.options.Metrics != nil {
		degraded := result.Action == domain.ActionChat && result.Diagnostic != ""
		rt.options.Metrics.RecordDispatch(rt.options.ServiceName, string(result.Action), degraded)
	}

	status := http.StatusOK
	if req.Async && result.RunID != "" {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

func (rt *Router) getArtifactByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/artifacts/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "artifact id is required"})
		return
	}

	artifact, err := rt.artifacts.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, artifact)
}

func (rt *Router) getRunByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "run id is required"})
		return
	}

	run, err := rt.runs.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) endSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session id is required"})
		return
	}

	rt.dispatcher.EndSession(id)
	writeJSON(w, http.StatusNoContent, nil)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}
