package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"diskgate/internal/auth"
	"diskgate/internal/disk"
	"diskgate/internal/storage"
)

// Handler bundles the HTTP surface dependencies: the account store, the
// token codec, and the upstream file gateway client.
type Handler struct {
	Store  storage.Repository
	Tokens *auth.TokenManager
	Disk   *disk.Client
}

// NewHandler constructs the API handler. A default upstream client is used
// when none is supplied.
func NewHandler(store storage.Repository, tokens *auth.TokenManager, client *disk.Client) *Handler {
	if client == nil {
		client = disk.NewClient()
	}
	return &Handler{Store: store, Tokens: tokens, Disk: client}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// WriteError is an exported helper for returning JSON API errors.
func WriteError(w http.ResponseWriter, status int, err error) {
	writeError(w, status, err)
}

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// Health reports liveness and account store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if h.Store != nil {
		if err := h.Store.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}
