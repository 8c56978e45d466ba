package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudclip-dev/cloudclip/pkg/observability"
	"github.com/cloudclip-dev/cloudclip/pkg/session"
)

// addItemRequest is the body of POST /session/{id}/clipboard.
type addItemRequest struct {
	Content  string `json:"content"`
	Hostname string `json:"hostname,omitempty"`
}

// errorResponse mirrors the wire shape existing clients expect.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Cloud Clipboard API is running",
	})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	code, err := s.store.Start(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	observability.RecordSessionStarted()
	writeJSON(w, http.StatusOK, map[string]string{"session_id": code})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	item, err := s.store.AddItem(r.Context(), r.PathValue("id"), req.Content, req.Hostname)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	observability.RecordItemAdded(item.Hostname)
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	hostname := r.URL.Query().Get("hostname")

	item, err := s.store.Latest(r.Context(), r.PathValue("id"), hostname)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hostname := r.URL.Query().Get("hostname")

	items, err := s.store.History(r.Context(), r.PathValue("id"), hostname)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.store.End(r.Context(), id); err != nil {
		s.writeStoreError(w, err)
		return
	}

	observability.RecordSessionEnded()
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s ended and data cleared", id),
	})
}

func (s *Server) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.ListActive(r.Context())
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	observability.SetActiveSessions(len(summaries))
	writeJSON(w, http.StatusOK, summaries)
}

// writeStoreError maps store errors to HTTP statuses. Both not-found kinds
// surface as 404; code exhaustion means the store is saturated.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoItems):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "No clipboard items found in session"})
	case errors.Is(err, session.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "Session not found"})
	case errors.Is(err, session.ErrCodespaceExhausted):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "No session codes available"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
