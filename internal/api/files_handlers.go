package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"diskgate/internal/disk"
	"diskgate/internal/observability/metrics"
)

type fileListResponse struct {
	Files []disk.Entry `json:"files"`
}

// Files lists the contents of a public share URL. The result reflects exactly
// one upstream query; an empty share is a success with an empty list.
func (h *Handler) Files(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}

	publicURL := r.URL.Query().Get("public_url")
	if publicURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("Public URL is required"))
		return
	}

	metrics.ObserveUpstreamCall("list_public")
	entries, err := h.Disk.ListPublic(r.Context(), publicURL)
	if err != nil {
		metrics.ObserveUpstreamFailure("list_public")
		var upstream *disk.UpstreamError
		if errors.As(err, &upstream) {
			slog.Error("upstream listing failed", "status", upstream.StatusCode, "error", upstream.Message)
			writeError(w, http.StatusInternalServerError, fmt.Errorf("unable to fetch files: %s", upstream.Message))
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, fileListResponse{Files: entries})
}

// Download validates the presence of a download link and echoes it back as a
// redirect target. The byte transfer happens client-side against the
// upstream-provided link directly.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	if _, ok := h.requireAuthenticatedUser(w, r); !ok {
		return
	}

	downloadURL := r.URL.Query().Get("download_url")
	if downloadURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("Download link not found"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"redirect_url": downloadURL})
}
