package handlers

import (
	"encoding/json"
	"net/http"

	"sdproxy/internal/proxy"

	"github.com/rs/zerolog"
)

// App is the handler container: the shared pipeline plus what the HTTP layer
// needs to describe failures.
type App struct {
	Logger     zerolog.Logger
	Pipeline   *proxy.Pipeline
	InstanceID string
}

func NewApp(logger zerolog.Logger, pipeline *proxy.Pipeline, instanceID string) *App {
	return &App{Logger: logger, Pipeline: pipeline, InstanceID: instanceID}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, msg string) {
	a.json(w, status, map[string]string{"error": code, "message": msg})
}
