package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"diarykeeper/internal/archive"
	"diarykeeper/internal/backup"
	"diarykeeper/internal/diary"
	"diarykeeper/internal/handlers"
	"diarykeeper/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Store    storage.Store
	Backups  *backup.Manager
	Keys     diary.Keys
	Sections *diary.SectionStore
	Archive  *archive.Manager
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(CORS)
	r.Use(LoggerMiddleware)

	sectionsHandler := handlers.NewSectionsHandler(deps.Sections)
	itemsHandler := handlers.NewItemsHandler(deps.Store, deps.Backups, deps.Keys)
	previewHandler := handlers.NewPreviewHandler(deps.Store, deps.Backups, deps.Keys)
	archiveHandler := handlers.NewArchiveHandler(deps.Archive, deps.Backups, func(ctx context.Context) {
		// Imported data bypasses the cached section list; refresh it.
		_ = deps.Sections.Refresh(ctx)
	})
	healthHandler := handlers.NewHealthHandler(deps.Store)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/sections", sectionsHandler.List)
		r.Post("/sections", sectionsHandler.Create)
		r.Delete("/sections/{name}", sectionsHandler.Delete)
		r.Post("/sections/{name}/rename", sectionsHandler.Rename)

		r.Get("/sections/{name}/items", itemsHandler.List)
		r.Post("/sections/{name}/items", itemsHandler.Create)
		r.Delete("/sections/{name}/items", itemsHandler.Clear)
		r.Put("/sections/{name}/items/{index}", itemsHandler.Update)
		r.Delete("/sections/{name}/items/{index}", itemsHandler.Delete)
		r.Get("/sections/{name}/items/{index}/preview", previewHandler.ServeHTTP)

		r.Post("/archive/export", archiveHandler.Export)
		r.Post("/archive/import", archiveHandler.Import)
		r.Get("/archive/info", archiveHandler.Info)
		r.Get("/backup/info", archiveHandler.BackupInfo)
	})

	r.Get("/health", healthHandler.ServeHTTP)

	return r
}
