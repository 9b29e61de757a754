package healthprobe

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker serves liveness and readiness probes for the scan service.
// The process is live as soon as it can answer; readiness flips on once the
// components have started and off again while shutting down.
type HealthChecker struct {
	service   string
	startTime time.Time

	mu     sync.RWMutex
	ready  bool
	reason string
}

// New creates a HealthChecker for the named service, initially not ready.
func New(service string) *HealthChecker {
	return &HealthChecker{
		service:   service,
		startTime: time.Now(),
		reason:    "starting",
	}
}

// SetReady puts the service into rotation.
func (h *HealthChecker) SetReady() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = true
	h.reason = ""
}

// SetNotReady takes the service out of rotation. The reason is reported by
// the readiness endpoint.
func (h *HealthChecker) SetNotReady(reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = false
	h.reason = reason
}

// Response is the wire shape of both probe endpoints.
type Response struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Uptime  string `json:"uptime"`
	Message string `json:"message,omitempty"`
}

// Health returns the liveness handler. It answers 200 whenever the process
// is running, independent of scanner state.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.respond(w, http.StatusOK, Response{
			Status:  "healthy",
			Service: h.service,
			Uptime:  time.Since(h.startTime).String(),
		})
	}
}

// Ready returns the readiness handler: 200 while in rotation, 503 with the
// current reason otherwise.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		ready, reason := h.ready, h.reason
		h.mu.RUnlock()

		if !ready {
			h.respond(w, http.StatusServiceUnavailable, Response{
				Status:  "not_ready",
				Service: h.service,
				Uptime:  time.Since(h.startTime).String(),
				Message: reason,
			})
			return
		}

		h.respond(w, http.StatusOK, Response{
			Status:  "ready",
			Service: h.service,
			Uptime:  time.Since(h.startTime).String(),
		})
	}
}

func (h *HealthChecker) respond(w http.ResponseWriter, code int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
