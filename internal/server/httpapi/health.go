package httpapi

import (
	"net/http"
	"time"
)

func (h *handler) liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "healthy", Timestamp: time.Now().UTC()})
}

// readiness reports 503 while any store probe fails.
func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		h.liveness(w, r)
		return
	}
	rep := h.checker.Check(r.Context())
	if !rep.Healthy {
		writeJSON(w, http.StatusServiceUnavailable, Response{Status: "unhealthy", Timestamp: time.Now().UTC(), Data: rep})
		return
	}
	writeJSON(w, http.StatusOK, Response{Status: "healthy", Timestamp: time.Now().UTC(), Data: rep})
}
