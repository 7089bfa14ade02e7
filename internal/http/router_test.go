package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"diarykeeper/internal/archive"
	"diarykeeper/internal/backup"
	"diarykeeper/internal/diary"
	internalhttp "diarykeeper/internal/http"
	"diarykeeper/internal/storage"
)

func init() {
	// Suppress logs for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	tmpDir := t.TempDir()
	db, err := storage.New(tmpDir + "/test.db")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	if err := storage.Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	kv := storage.NewKVRepo(db)
	keys := diary.Keys{}
	backups := backup.NewManager(kv, "")
	sections := diary.NewSectionStore(kv, backups, keys)
	if err := sections.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	exportDir := filepath.Join(tmpDir, "exports")
	if err := os.MkdirAll(exportDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	return internalhttp.NewRouter(&internalhttp.Deps{
		Store:    kv,
		Backups:  backups,
		Keys:     keys,
		Sections: sections,
		Archive:  archive.NewManager(kv, backups, keys, "Personal Diary", exportDir),
	})
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_SectionLifecycle(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"create section", http.MethodPost, "/api/sections", `{"name":"Work"}`, http.StatusCreated},
		{"create second section", http.MethodPost, "/api/sections", `{"name":"Notes"}`, http.StatusCreated},
		{"duplicate section conflicts", http.MethodPost, "/api/sections", `{"name":"Work"}`, http.StatusConflict},
		{"empty name rejected", http.MethodPost, "/api/sections", `{"name":"  "}`, http.StatusBadRequest},
		{"invalid body rejected", http.MethodPost, "/api/sections", `{broken`, http.StatusBadRequest},
		{"list sections", http.MethodGet, "/api/sections", "", http.StatusOK},
		{"rename to taken name conflicts", http.MethodPost, "/api/sections/Notes/rename", `{"newName":"Work"}`, http.StatusConflict},
		{"rename section", http.MethodPost, "/api/sections/Notes/rename", `{"newName":"Journal"}`, http.StatusOK},
		{"rename absent section", http.MethodPost, "/api/sections/Ghost/rename", `{"newName":"Anything"}`, http.StatusNotFound},
		{"delete section", http.MethodDelete, "/api/sections/Journal", "", http.StatusOK},
		{"delete absent section", http.MethodDelete, "/api/sections/Journal", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_ItemLifecycle(t *testing.T) {
	router := newTestRouter(t)

	if w := do(t, router, http.MethodPost, "/api/sections", `{"name":"Notes"}`); w.Code != http.StatusCreated {
		t.Fatalf("create section status = %d", w.Code)
	}

	w := do(t, router, http.MethodPost, "/api/sections/Notes/items", `{"text":"# hello"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create item status = %d (body %s)", w.Code, w.Body.String())
	}
	var entry diary.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("create item response unparseable: %v", err)
	}
	if entry.ID == 0 || entry.Text != "# hello" {
		t.Errorf("created entry = %+v, want non-zero ID and the posted text", entry)
	}

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"list items", http.MethodGet, "/api/sections/Notes/items", "", http.StatusOK},
		{"update item", http.MethodPut, "/api/sections/Notes/items/0", `{"text":"edited"}`, http.StatusOK},
		{"update out of range", http.MethodPut, "/api/sections/Notes/items/5", `{"text":"x"}`, http.StatusNotFound},
		{"non-numeric index", http.MethodPut, "/api/sections/Notes/items/abc", `{"text":"x"}`, http.StatusBadRequest},
		{"preview item", http.MethodGet, "/api/sections/Notes/items/0/preview", "", http.StatusOK},
		{"preview out of range", http.MethodGet, "/api/sections/Notes/items/9/preview", "", http.StatusNotFound},
		{"delete item", http.MethodDelete, "/api/sections/Notes/items/0", "", http.StatusOK},
		{"clear items", http.MethodDelete, "/api/sections/Notes/items", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d (body %s)", tt.method, tt.path, w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestRouter_PreviewRendersMarkdown(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPost, "/api/sections", `{"name":"Notes"}`)
	do(t, router, http.MethodPost, "/api/sections/Notes/items", `{"text":"# Title"}`)

	w := do(t, router, http.MethodGet, "/api/sections/Notes/items/0/preview", "")
	if w.Code != http.StatusOK {
		t.Fatalf("preview status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("preview body lacks rendered heading: %s", w.Body.String())
	}
}

func TestRouter_ArchiveEndpoints(t *testing.T) {
	router := newTestRouter(t)

	do(t, router, http.MethodPost, "/api/sections", `{"name":"Notes"}`)
	do(t, router, http.MethodPost, "/api/sections/Notes/items", `{"text":"hello"}`)

	// Export writes a file and reports it
	w := do(t, router, http.MethodPost, "/api/archive/export", "")
	if w.Code != http.StatusOK {
		t.Fatalf("export status = %d (body %s)", w.Code, w.Body.String())
	}
	var exported struct {
		Filename string `json:"filename"`
		Path     string `json:"path"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &exported); err != nil {
		t.Fatalf("export response unparseable: %v", err)
	}
	snapshot, err := os.ReadFile(exported.Path)
	if err != nil {
		t.Fatalf("exported file unreadable: %v", err)
	}

	// Import without confirm answers with the summary, no writes
	w = do(t, router, http.MethodPost, "/api/archive/import?mode=replace", string(snapshot))
	if w.Code != http.StatusOK {
		t.Fatalf("unconfirmed import status = %d (body %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"confirmationRequired":true`) {
		t.Errorf("unconfirmed import body = %s, want confirmationRequired", w.Body.String())
	}

	// Confirmed import restores
	w = do(t, router, http.MethodPost, "/api/archive/import?mode=replace&confirm=true", string(snapshot))
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed import status = %d (body %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"outcome":"success"`) {
		t.Errorf("confirmed import body = %s, want success outcome", w.Body.String())
	}

	// Invalid document is a validation error
	w = do(t, router, http.MethodPost, "/api/archive/import?confirm=true", `{"metadata":{}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid import status = %d, want 400", w.Code)
	}

	// Unknown mode is rejected
	w = do(t, router, http.MethodPost, "/api/archive/import?mode=sideways", string(snapshot))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", w.Code)
	}

	// Live archive info
	w = do(t, router, http.MethodGet, "/api/archive/info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("archive info status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"sections":1`) {
		t.Errorf("archive info body = %s, want 1 section", w.Body.String())
	}

	// Backup metadata was recorded by the item write
	w = do(t, router, http.MethodGet, "/api/backup/info", "")
	if w.Code != http.StatusOK {
		t.Fatalf("backup info status = %d (body %s)", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"status":"success"`) {
		t.Errorf("backup info body = %s, want success status", w.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"healthy"`) {
		t.Errorf("health body = %s, want healthy", w.Body.String())
	}
}
