package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"diarykeeper/internal/backup"
	"diarykeeper/internal/diary"
	"diarykeeper/internal/storage"
)

// ImportOptions customizes one import flow.
type ImportOptions struct {
	// Confirm is asked once after validation with the operation's
	// scope; returning false cancels the import. A nil Confirm means
	// the caller has already confirmed.
	Confirm func(summary ImportSummary) bool
	// Reload is invoked after a successful restore so collaborators
	// can refresh their cached state.
	Reload func(ctx context.Context)
}

// Manager exports the full collection to a snapshot file and restores
// an imported snapshot with replace or merge semantics. It reads and
// writes the underlying store directly, bypassing the cached state of
// the section/item stores.
type Manager struct {
	store     storage.Store
	backups   *backup.Manager
	keys      diary.Keys
	appName   string
	exportDir string
	lock      *flock.Flock
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates a Manager writing exports under exportDir. A file
// lock in exportDir serializes restores across processes (the API
// server and the offline CLI share the same database).
func NewManager(store storage.Store, backups *backup.Manager, keys diary.Keys, appName, exportDir string) *Manager {
	return &Manager{
		store:     store,
		backups:   backups,
		keys:      keys,
		appName:   appName,
		exportDir: exportDir,
		lock:      flock.New(filepath.Join(exportDir, ".restore.lock")),
		logger:    slog.Default(),
		now:       time.Now,
	}
}

// CollectAll reads the section list and every section's entry list and
// assembles a snapshot. One store read per section plus one for the
// list.
func (m *Manager) CollectAll(ctx context.Context) (*Snapshot, error) {
	sections, err := m.readSections(ctx)
	if err != nil {
		return nil, err
	}

	items := make(map[string][]diary.Entry, len(sections))
	totalItems := 0
	for _, name := range sections {
		entries, err := m.readItems(ctx, name)
		if err != nil {
			return nil, err
		}
		items[name] = entries
		totalItems += len(entries)
	}

	return &Snapshot{
		Metadata: Metadata{
			Version:       snapshotVersion,
			Timestamp:     m.now().UTC().Format(time.RFC3339),
			AppName:       m.appName,
			TotalSections: len(sections),
			TotalItems:    totalItems,
		},
		Sections:   sections,
		Items:      items,
		TotalItems: totalItems,
	}, nil
}

// Export collects the full collection and writes it as pretty-printed
// JSON to a new file in the export directory. The snapshot lands in a
// uniquely named temp file first and is renamed into place, so a
// partial file is never left under the final name. Returns the path of
// the written file.
func (m *Manager) Export(ctx context.Context) (string, error) {
	snapshot, err := m.CollectAll(ctx)
	if err != nil {
		return "", diary.WrapError(err, "failed to collect data for export")
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	filename := exportFilename(m.now().UTC())
	finalPath := filepath.Join(m.exportDir, filename)
	tempPath := finalPath + ".tmp-" + uuid.NewString()

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to finalize export file: %w", err)
	}

	m.logger.InfoContext(ctx, "exported backup",
		"file", finalPath,
		"sections", snapshot.Metadata.TotalSections,
		"items", snapshot.Metadata.TotalItems)
	return finalPath, nil
}

// exportFilename derives the backup filename from a timestamp, with
// ':' and '.' replaced so the name is filesystem-safe everywhere.
func exportFilename(now time.Time) string {
	stamp := now.Format(time.RFC3339)
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return "diary-backup-" + stamp + ".json"
}

// Import runs the full import flow: validate, confirm, restore, notify.
// Validation failure and user decline touch no stored state.
func (m *Manager) Import(ctx context.Context, raw []byte, replace bool, opts ImportOptions) ImportResult {
	if result := Validate(raw); !result.IsValid {
		m.logger.WarnContext(ctx, "import rejected", "reason", result.Error)
		return ImportResult{Outcome: OutcomeInvalid, Error: result.Error}
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		// Validate accepted the structure, so this is unexpected.
		m.logger.WarnContext(ctx, "import rejected", "reason", err.Error())
		return ImportResult{Outcome: OutcomeInvalid, Error: err.Error()}
	}

	totalItems := 0
	for _, entries := range snapshot.Items {
		totalItems += len(entries)
	}
	summary := ImportSummary{
		Sections:   len(snapshot.Sections),
		TotalItems: totalItems,
		Replace:    replace,
	}

	if opts.Confirm != nil && !opts.Confirm(summary) {
		m.logger.InfoContext(ctx, "import cancelled by user")
		return ImportResult{Outcome: OutcomeCancelled}
	}

	if err := m.Restore(ctx, &snapshot, replace); err != nil {
		m.logger.ErrorContext(ctx, "restore failed", "error", err)
		return ImportResult{Outcome: OutcomeFailed, Error: err.Error()}
	}

	if opts.Reload != nil {
		opts.Reload(ctx)
	}

	return ImportResult{
		Outcome:    OutcomeSuccess,
		Sections:   summary.Sections,
		TotalItems: summary.TotalItems,
	}
}

// Restore applies a snapshot to the store. In replace mode every
// current section's items are discarded first and the snapshot is
// written verbatim. In merge mode section lists are unioned and
// incoming entries are appended after existing ones, skipping IDs
// already present, so importing the same snapshot twice is idempotent.
func (m *Manager) Restore(ctx context.Context, snapshot *Snapshot, replace bool) error {
	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire restore lock: %w", err)
	}
	defer func() {
		_ = m.lock.Unlock()
	}()

	if replace {
		return m.restoreReplace(ctx, snapshot)
	}
	return m.restoreMerge(ctx, snapshot)
}

func (m *Manager) restoreReplace(ctx context.Context, snapshot *Snapshot) error {
	current, err := m.readSections(ctx)
	if err != nil {
		return err
	}

	// Drop every current section's items; their shadow backups are
	// deliberately kept as the last recovery path.
	for _, name := range current {
		key := m.keys.Items(name)
		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.WarnContext(ctx, "replace restore left a dangling items key", "key", key, "error", err)
		}
	}

	if err := m.writeSections(ctx, snapshot.Sections); err != nil {
		return err
	}

	for _, name := range snapshot.Sections {
		entries, ok := snapshot.Items[name]
		if !ok {
			continue
		}
		if err := m.writeItems(ctx, name, entries); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "restore complete", "mode", "replace", "sections", len(snapshot.Sections))
	return nil
}

func (m *Manager) restoreMerge(ctx context.Context, snapshot *Snapshot) error {
	current, err := m.readSections(ctx)
	if err != nil {
		return err
	}

	// Union: current order first, then new sections in snapshot order.
	merged := make([]string, 0, len(current)+len(snapshot.Sections))
	seen := make(map[string]bool, len(current))
	for _, name := range current {
		merged = append(merged, name)
		seen[name] = true
	}
	for _, name := range snapshot.Sections {
		if !seen[name] {
			merged = append(merged, name)
			seen[name] = true
		}
	}

	if err := m.writeSections(ctx, merged); err != nil {
		return err
	}

	for name, incoming := range snapshot.Items {
		existing, err := m.readItems(ctx, name)
		if err != nil {
			return err
		}

		known := make(map[int64]bool, len(existing))
		for _, entry := range existing {
			known[entry.ID] = true
		}

		// New entries go after existing ones: bulk import preserves
		// archive order rather than recency order.
		mergedItems := existing
		for _, entry := range incoming {
			if !known[entry.ID] {
				mergedItems = append(mergedItems, entry)
				known[entry.ID] = true
			}
		}

		if err := m.writeItems(ctx, name, mergedItems); err != nil {
			return err
		}
	}

	m.logger.InfoContext(ctx, "restore complete", "mode", "merge", "sections", len(merged))
	return nil
}

// Info recomputes collection totals from the store. This is a live
// reading, never a cached one, so it is always consistent with current
// stored state at the cost of one read per section.
func (m *Manager) Info(ctx context.Context) (*Info, error) {
	snapshot, err := m.CollectAll(ctx)
	if err != nil {
		return nil, err
	}
	return &Info{
		Sections:     snapshot.Metadata.TotalSections,
		TotalItems:   snapshot.Metadata.TotalItems,
		LastModified: m.now().UTC().Format(time.RFC3339),
	}, nil
}

func (m *Manager) readSections(ctx context.Context) ([]string, error) {
	raw, err := m.store.Get(ctx, m.keys.Sections())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read section list: %w", err)
	}
	var sections []string
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		return nil, fmt.Errorf("failed to parse section list: %w", err)
	}
	return sections, nil
}

func (m *Manager) writeSections(ctx context.Context, sections []string) error {
	if sections == nil {
		sections = []string{}
	}
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to marshal section list: %w", err)
	}
	return m.store.Set(ctx, m.keys.Sections(), string(data))
}

func (m *Manager) readItems(ctx context.Context, section string) ([]diary.Entry, error) {
	raw, err := m.store.Get(ctx, m.keys.Items(section))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []diary.Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read items for %q: %w", section, err)
	}
	var entries []diary.Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to parse items for %q: %w", section, err)
	}
	return entries, nil
}

func (m *Manager) writeItems(ctx context.Context, section string, entries []diary.Entry) error {
	if entries == nil {
		entries = []diary.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal items for %q: %w", section, err)
	}
	return m.store.Set(ctx, m.keys.Items(section), string(data))
}
