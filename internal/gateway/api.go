// ABOUTME: HTTP host API: UI lifecycle transitions, deep links, service listing and ledger.
// ABOUTME: Repeated X-Request-ID values are acknowledged without being applied twice.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/2389/shell-bridge/internal/shell"
	"github.com/2389/shell-bridge/internal/store"
)

const (
	maxRequestBody  = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// AttachRequest is the JSON request body for POST /host/attach.
type AttachRequest struct {
	HostID   string   `json:"host_id"`
	Args     []string `json:"args,omitempty"`
	DeepLink string   `json:"deep_link,omitempty"`
}

// AttachResponse is the JSON response for POST /host/attach.
type AttachResponse struct {
	Start     string    `json:"start"`
	StartedAt time.Time `json:"started_at"`
}

// LifecycleRequest is the JSON request body for POST /host/start, /host/stop
// and /host/destroy.
type LifecycleRequest struct {
	HostID    string `json:"host_id"`
	Finishing bool   `json:"finishing,omitempty"`
}

// DeepLinkRequest is the JSON request body for POST /host/deeplink.
type DeepLinkRequest struct {
	URL string `json:"url"`
}

// InstanceResponse describes one service instance.
type InstanceResponse struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
	State  string `json:"state"`
}

// ServicesResponse is the JSON response for GET /api/services.
type ServicesResponse struct {
	Present         bool               `json:"present"`
	Ready           bool               `json:"ready"`
	Shutdown        bool               `json:"shutdown"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	Args            []string           `json:"args,omitempty"`
	PendingDeepLink string             `json:"pending_deep_link,omitempty"`
	Services        []string           `json:"services"`
	Instances       []InstanceResponse `json:"instances"`
}

// EventsResponse is the JSON response for GET /api/events.
type EventsResponse struct {
	Events []*store.Event `json:"events"`
}

func (g *Gateway) routes() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/health/ready", g.handleReady)

	// Host API
	mux.Handle("/host/attach", g.hostRoute("/host/attach", g.handleAttach))
	mux.Handle("/host/start", g.hostRoute("/host/start", g.lifecycleHandler(g.host.OnUiStart)))
	mux.Handle("/host/stop", g.hostRoute("/host/stop", g.lifecycleHandler(g.host.OnUiStop)))
	mux.Handle("/host/destroy", g.hostRoute("/host/destroy", g.lifecycleHandler(g.host.OnUiDestroy)))
	mux.Handle("/host/deeplink", g.hostRoute("/host/deeplink", g.handleDeepLink))

	// Read-only API
	mux.Handle("/api/services", g.observed("/api/services", g.handleListServices))
	mux.Handle("/api/events", g.observed("/api/events", g.handleListEvents))

	if g.metrics != nil {
		mux.Handle(g.config.Metrics.Path, g.metrics.Handler())
		g.logger.Info("metrics enabled", "path", g.config.Metrics.Path)
	}

	return mux
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observed counts requests per route when metrics are enabled.
func (g *Gateway) observed(route string, h http.HandlerFunc) http.Handler {
	if g.metrics == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		g.metrics.ObserveHostRequest(route, rec.status)
	})
}

// hostRoute accepts POST only and drops requests whose X-Request-ID already
// succeeded within the dedupe window. Failed requests leave the ID unused so
// the host can retry with it.
func (g *Gateway) hostRoute(route string, h http.HandlerFunc) http.Handler {
	return g.observed(route, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var key string
		if id := r.Header.Get(requestIDHeader); id != "" {
			key = route + ":" + id
			if g.dedupe.Check(key) {
				g.logger.Debug("duplicate host request", "route", route, "request_id", id)
				if g.metrics != nil {
					g.metrics.ObserveDuplicate()
				}
				w.WriteHeader(http.StatusAlreadyReported)
				return
			}
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)

		if key != "" && rec.status >= 200 && rec.status < 300 {
			g.dedupe.Mark(key)
		}
	})
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (g *Gateway) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendShellError maps coordinator errors to HTTP status codes.
func (g *Gateway) sendShellError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shell.ErrNotPresent), errors.Is(err, shell.ErrShutdown):
		g.sendJSONError(w, http.StatusConflict, err.Error())
	default:
		g.sendJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func (g *Gateway) handleAttach(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if err := decodeBody(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	coord, start, err := g.host.OnHostAttach(shell.HostRef{ID: req.HostID}, req.Args, req.DeepLink)
	if err != nil {
		g.sendShellError(w, err)
		return
	}

	g.sendJSON(w, AttachResponse{Start: start.String(), StartedAt: coord.StartedAt()})
}

func (g *Gateway) lifecycleHandler(fn func(shell.HostRef) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LifecycleRequest
		if err := decodeBody(r, &req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		if err := fn(shell.HostRef{ID: req.HostID, Finishing: req.Finishing}); err != nil {
			g.sendShellError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleDeepLink(w http.ResponseWriter, r *http.Request) {
	var req DeepLinkRequest
	if err := decodeBody(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		g.sendJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := g.host.OnNewDeepLink(req.URL); err != nil {
		g.sendShellError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) handleListServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	resp := ServicesResponse{
		Services:  []string{},
		Instances: []InstanceResponse{},
	}

	if coord := g.host.Current(); coord != nil {
		startedAt := coord.StartedAt()
		resp.Present = true
		resp.Ready = coord.Ready()
		resp.Shutdown = coord.IsShutdown()
		resp.StartedAt = &startedAt
		resp.Args = coord.Args()
		resp.PendingDeepLink, _ = coord.PendingDeepLink()
		resp.Services = coord.Registry().Services()
		for _, info := range coord.Registry().List() {
			resp.Instances = append(resp.Instances, InstanceResponse{
				Name:   info.Name,
				Handle: info.Handle.String(),
				State:  info.State.String(),
			})
		}
	}

	g.sendJSON(w, resp)
}

func (g *Gateway) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if g.ledger == nil {
		g.sendJSONError(w, http.StatusNotFound, "lifecycle ledger not configured")
		return
	}

	limit := store.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := g.ledger.ListEvents(r.Context(), limit)
	if err != nil {
		g.logger.Error("failed to list lifecycle events", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []*store.Event{}
	}

	g.sendJSON(w, EventsResponse{Events: events})
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK once a coordinator exists and has not shut down.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	coord := g.host.Current()
	if coord == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shell not attached"))
		return
	}
	if coord.IsShutdown() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("shell shut down"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d services live)", coord.Registry().LiveCount())
}
