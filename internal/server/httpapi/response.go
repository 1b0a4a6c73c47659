package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

// Response is the envelope of every JSON reply.
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// writeJSON encodes to a buffer first so an encoding failure can still be
// reported before headers go out.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func respondOK(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, Response{Status: "ok", Timestamp: time.Now().UTC(), Data: data})
}

func respondMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Status: "error", Timestamp: time.Now().UTC(), Error: msg})
}

// respondError maps err onto a status code and a client-safe message.
// Server-side failures are logged with the request id; their details never
// reach the client.
func respondError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", "request_id", middleware.GetReqID(r.Context()),
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondMessage(w, code, common.PublicMessage(err))
}
