package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sdproxy/internal/middleware"
	"sdproxy/internal/proxy"

	"github.com/google/uuid"
)

// Proxy handles the single inbound endpoint: it decodes the envelope, runs
// the pipeline and relays the outcome. Backend responses keep their original
// status; middleware failures collapse to a generic 500 carrying an error id
// and the instance id for correlation with backend logs.
func (a *App) Proxy(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	outcome, err := a.Pipeline.Handle(r.Context(), raw)
	if err != nil {
		var verr *proxy.ValidationError
		if errors.As(err, &verr) {
			a.error(w, http.StatusBadRequest, "validation_error", verr.Message)
			return
		}
		errID := middleware.RequestIDFromContext(r.Context())
		if errID == "" {
			errID = uuid.NewString()
		}
		a.Logger.Error().Err(err).Str("error_id", errID).Str("instance", a.InstanceID).Msg("request failed")
		a.json(w, http.StatusInternalServerError, map[string]string{
			"error":    "internal",
			"message":  "request processing failed",
			"error_id": errID,
			"instance": a.InstanceID,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(outcome.Status)
	_, _ = w.Write(outcome.Body)
}
