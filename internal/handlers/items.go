package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"diarykeeper/internal/backup"
	"diarykeeper/internal/contextutil"
	"diarykeeper/internal/diary"
	"diarykeeper/internal/storage"
)

// ItemsHandler handles HTTP requests for the entries of a section. A
// fresh ItemStore is scoped to the requested section on every call;
// the HTTP layer keeps no cross-request item cache.
type ItemsHandler struct {
	store   storage.Store
	backups *backup.Manager
	keys    diary.Keys
}

// NewItemsHandler creates a new ItemsHandler.
func NewItemsHandler(store storage.Store, backups *backup.Manager, keys diary.Keys) *ItemsHandler {
	return &ItemsHandler{store: store, backups: backups, keys: keys}
}

// ItemRequest represents the payload for creating or updating an entry.
type ItemRequest struct {
	Text string `json:"text"`
}

// ItemsResponse represents the entry list response.
type ItemsResponse struct {
	Section string        `json:"section"`
	Items   []diary.Entry `json:"items"`
}

// List returns the section's entries, newest first.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, ok := h.scopedStore(w, r)
	if !ok {
		return
	}

	writeJSON(ctx, w, http.StatusOK, ItemsResponse{Section: items.Section(), Items: items.Items()})
}

// Create appends a new entry at the head of the section's list.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items, ok := h.scopedStore(w, r)
	if !ok {
		return
	}

	entry, err := items.Add(ctx, req.Text)
	if err != nil {
		handleStoreError(w, ctx, err, "Failed to add item")
		return
	}

	writeJSON(ctx, w, http.StatusCreated, entry)
}

// Update replaces the text of the entry at the given index.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	items, ok := h.scopedStore(w, r)
	if !ok {
		return
	}

	if err := items.Update(ctx, index, req.Text); err != nil {
		handleStoreError(w, ctx, err, "Failed to update item")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ItemsResponse{Section: items.Section(), Items: items.Items()})
}

// Delete removes the entry at the given index.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	items, ok := h.scopedStore(w, r)
	if !ok {
		return
	}

	if err := items.Delete(ctx, index); err != nil {
		handleStoreError(w, ctx, err, "Failed to delete item")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ItemsResponse{Section: items.Section(), Items: items.Items()})
}

// Clear removes every entry in the section.
func (h *ItemsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, ok := h.scopedStore(w, r)
	if !ok {
		return
	}

	if err := items.Clear(ctx); err != nil {
		handleStoreError(w, ctx, err, "Failed to clear items")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ItemsResponse{Section: items.Section(), Items: items.Items()})
}

// scopedStore builds an ItemStore scoped to the request's section and
// loads its entries.
func (h *ItemsHandler) scopedStore(w http.ResponseWriter, r *http.Request) (*diary.ItemStore, bool) {
	ctx := r.Context()

	name, ok := sectionParam(w, r)
	if !ok {
		return nil, false
	}

	items := diary.NewItemStore(h.store, h.backups, h.keys, name)
	if err := items.Load(ctx); err != nil {
		handleStoreError(w, ctx, err, "Failed to load items")
		return nil, false
	}
	return items, true
}

// indexParam extracts the {index} URL parameter.
func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Item index must be an integer")
		return 0, false
	}
	return index, true
}
