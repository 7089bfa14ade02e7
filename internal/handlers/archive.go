package handlers

import (
	"context"
	"io"
	"net/http"
	"path/filepath"

	"diarykeeper/internal/archive"
	"diarykeeper/internal/backup"
	"diarykeeper/internal/contextutil"
)

// maxImportBytes caps the accepted backup file size.
const maxImportBytes = 32 << 20

// ArchiveHandler handles HTTP requests for export, import and backup
// status.
type ArchiveHandler struct {
	manager *archive.Manager
	backups *backup.Manager
	reload  func(ctx context.Context)
}

// NewArchiveHandler creates a new ArchiveHandler. reload is invoked
// after a successful import so cached section state is refreshed; nil
// disables the notification.
func NewArchiveHandler(manager *archive.Manager, backups *backup.Manager, reload func(ctx context.Context)) *ArchiveHandler {
	return &ArchiveHandler{manager: manager, backups: backups, reload: reload}
}

// ExportResponse reports the written backup file.
type ExportResponse struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
}

// ImportSummaryResponse is returned when an import is submitted without
// confirmation: the scope of the pending operation and no writes.
type ImportSummaryResponse struct {
	ConfirmationRequired bool                  `json:"confirmationRequired"`
	Summary              archive.ImportSummary `json:"summary"`
}

// Export collects the full collection and writes a snapshot file.
func (h *ArchiveHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	path, err := h.manager.Export(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to export backup")
		return
	}

	writeJSON(ctx, w, http.StatusOK, ExportResponse{
		Filename: filepath.Base(path),
		Path:     path,
	})
}

// Import validates the posted backup document and restores it. Mode is
// selected with ?mode=replace|merge (merge by default). Without
// ?confirm=true the handler answers with the operation summary and
// performs no writes; this is the confirmation prompt of the flow.
func (h *ArchiveHandler) Import(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "merge"
	}
	if mode != "merge" && mode != "replace" {
		writeError(w, http.StatusBadRequest, "Mode must be \"merge\" or \"replace\"")
		return
	}
	replace := mode == "replace"
	confirmed := r.URL.Query().Get("confirm") == "true"

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
	if err != nil {
		logger.WarnContext(ctx, "failed to read import body", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to read backup document")
		return
	}

	var pending archive.ImportSummary
	result := h.manager.Import(ctx, raw, replace, archive.ImportOptions{
		Confirm: func(summary archive.ImportSummary) bool {
			pending = summary
			return confirmed
		},
		Reload: h.reload,
	})

	switch result.Outcome {
	case archive.OutcomeInvalid:
		writeError(w, http.StatusBadRequest, result.Error)
	case archive.OutcomeCancelled:
		// The decline path doubles as the prompt: report what the
		// import would do so the caller can resubmit with confirm=true.
		writeJSON(ctx, w, http.StatusOK, ImportSummaryResponse{
			ConfirmationRequired: true,
			Summary:              pending,
		})
	case archive.OutcomeFailed:
		writeError(w, http.StatusInternalServerError, result.Error)
	default:
		writeJSON(ctx, w, http.StatusOK, result)
	}
}

// Info returns live collection totals recomputed from the store.
func (h *ArchiveHandler) Info(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.manager.Info(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute archive info")
		return
	}

	writeJSON(ctx, w, http.StatusOK, info)
}

// BackupInfo returns the last-known global backup metadata record.
func (h *ArchiveHandler) BackupInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	metadata, err := h.backups.Info(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read backup metadata")
		return
	}
	if metadata == nil {
		writeError(w, http.StatusNotFound, "No backup recorded yet")
		return
	}

	writeJSON(ctx, w, http.StatusOK, metadata)
}
