package api

import (
	"encoding/json"
	"net/http"

	"audio-curator/internal/service"
)

// StatusSource reports the state of the session. *service.Orchestrator
// implements it.
type StatusSource interface {
	Status() service.SessionStatus
}

type Handlers struct {
	session StatusSource
}

func NewHandlers(session StatusSource) *Handlers {
	return &Handlers{session: session}
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (h *Handlers) json(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) success(w http.ResponseWriter, data interface{}) {
	h.json(w, http.StatusOK, Response{Success: true, Data: data})
}

func (h *Handlers) error(w http.ResponseWriter, status int, msg string) {
	h.json(w, status, Response{Success: false, Error: msg})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.success(w, map[string]interface{}{
		"status": "ok",
	})
}

func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	if h.session == nil {
		h.error(w, http.StatusServiceUnavailable, "no session")
		return
	}
	h.success(w, h.session.Status())
}
