package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	ghhtml "github.com/yuin/goldmark/renderer/html"

	"diarykeeper/internal/backup"
	"diarykeeper/internal/contextutil"
	"diarykeeper/internal/diary"
	"diarykeeper/internal/storage"
)

// PreviewHandler renders a single entry's text as an HTML page. Entries
// are free text; markdown in them is rendered with GFM extensions.
type PreviewHandler struct {
	store    storage.Store
	backups  *backup.Manager
	keys     diary.Keys
	parser   goldmark.Markdown
	template *template.Template
}

// previewPageData holds template data for rendered entry pages.
type previewPageData struct {
	Section      string
	CreatedAt    string
	LastModified string
	Content      template.HTML
}

// NewPreviewHandler creates a new handler for entry previews.
func NewPreviewHandler(store storage.Store, backups *backup.Manager, keys diary.Keys) *PreviewHandler {
	tmpl := template.Must(template.New("entry").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Entry &mdash; {{.Section}}</title>
  <style>
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', sans-serif;
      margin: 0 auto;
      padding: 2rem;
      max-width: 700px;
      line-height: 1.7;
    }
    header {
      margin-bottom: 1.5rem;
      border-bottom: 1px solid #ddd;
      padding-bottom: 1rem;
    }
    .meta {
      color: #666;
      font-size: 0.9rem;
    }
    blockquote {
      border-left: 4px solid #ccc;
      padding-left: 1rem;
      margin-left: 0;
      color: #555;
    }
    pre {
      background: #f5f5f5;
      padding: 1rem;
      overflow-x: auto;
      border-radius: 6px;
    }
  </style>
</head>
<body>
  <header>
    <h1>{{.Section}}</h1>
    <p class="meta">Created {{.CreatedAt}} &middot; Last modified {{.LastModified}}</p>
  </header>
  <article>{{.Content}}</article>
</body>
</html>`))

	return &PreviewHandler{
		store:   store,
		backups: backups,
		keys:    keys,
		parser: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				ghhtml.WithHardWraps(),
			),
		),
		template: tmpl,
	}
}

// ServeHTTP renders the requested entry as HTML.
func (h *PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	name, ok := sectionParam(w, r)
	if !ok {
		return
	}

	items := diary.NewItemStore(h.store, h.backups, h.keys, name)
	if err := items.Load(ctx); err != nil {
		handleStoreError(w, ctx, err, "Failed to load items")
		return
	}

	entries := items.Items()
	if index < 0 || index >= len(entries) {
		writeError(w, http.StatusNotFound, "Item index out of range")
		return
	}
	entry := entries[index]

	htmlContent, err := h.renderMarkdown([]byte(entry.Text))
	if err != nil {
		logger.ErrorContext(ctx, "failed to render entry", "section", name, "index", index, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render entry")
		return
	}

	pageData := previewPageData{
		Section:      name,
		CreatedAt:    entry.CreatedAt,
		LastModified: entry.LastModified,
		Content:      template.HTML(htmlContent),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, pageData); err != nil {
		logger.ErrorContext(ctx, "failed to execute entry template", "error", err)
	}
}

func (h *PreviewHandler) renderMarkdown(content []byte) (string, error) {
	var buf bytes.Buffer
	if err := h.parser.Convert(content, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}
