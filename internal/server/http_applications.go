package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/store"
)

// maxBodyBytes bounds a registration body.
const maxBodyBytes = 8 << 20

// handleCreateApplication handles POST /applications.
func (s *RegistryServer) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	app, err := s.createApplication(r.Context(), body)
	if err != nil {
		var ie inputError
		if errors.As(err, &ie) {
			writeError(w, http.StatusBadRequest, ie.Error())
		} else {
			slog.Error("create application failed", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to create application")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"application": app})
}

// handleListApplications handles GET /applications.
func (s *RegistryServer) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.store.ListApplications(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list applications")
		return
	}

	// Ensure applications is never null in JSON output.
	if apps == nil {
		apps = []*model.Application{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"applications": apps})
}

// handleGetApplication handles GET /applications/{id}.
func (s *RegistryServer) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	app, err := s.store.GetApplication(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get application")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"application": app})
}
