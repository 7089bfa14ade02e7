package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"diarykeeper/internal/contextutil"
	"diarykeeper/internal/diary"
)

// SectionsHandler handles HTTP requests for section management.
type SectionsHandler struct {
	sections *diary.SectionStore
}

// NewSectionsHandler creates a new SectionsHandler.
func NewSectionsHandler(sections *diary.SectionStore) *SectionsHandler {
	return &SectionsHandler{sections: sections}
}

// SectionRequest represents the payload for creating a section.
type SectionRequest struct {
	Name string `json:"name"`
}

// RenameRequest represents the payload for renaming a section.
type RenameRequest struct {
	NewName string `json:"newName"`
}

// SectionsResponse represents the section list response.
type SectionsResponse struct {
	Sections []string `json:"sections"`
}

// List returns the ordered section name list.
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.sections.Refresh(ctx); err != nil {
		handleStoreError(w, ctx, err, "Failed to load sections")
		return
	}

	writeJSON(ctx, w, http.StatusOK, SectionsResponse{Sections: h.sections.Sections()})
}

// Create adds a new section.
func (h *SectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req SectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.sections.Add(ctx, req.Name); err != nil {
		handleStoreError(w, ctx, err, "Failed to add section")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, SectionsResponse{Sections: h.sections.Sections()})
}

// Delete removes a section along with its items and their backup.
func (h *SectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, ok := sectionParam(w, r)
	if !ok {
		return
	}

	if err := h.sections.Delete(ctx, name); err != nil {
		handleStoreError(w, ctx, err, "Failed to delete section")
		return
	}

	writeJSON(ctx, w, http.StatusOK, SectionsResponse{Sections: h.sections.Sections()})
}

// Rename changes a section's name, migrating its item partition.
func (h *SectionsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	name, ok := sectionParam(w, r)
	if !ok {
		return
	}

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.sections.Rename(ctx, name, req.NewName); err != nil {
		handleStoreError(w, ctx, err, "Failed to rename section")
		return
	}

	writeJSON(ctx, w, http.StatusOK, SectionsResponse{Sections: h.sections.Sections()})
}

// sectionParam extracts and unescapes the {name} URL parameter.
func sectionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid section name encoding")
		return "", false
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, "Section name is required")
		return "", false
	}
	return name, true
}
