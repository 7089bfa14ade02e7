package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"diarykeeper/internal/backup"
	"diarykeeper/internal/storage"
)

// SectionStore manages the ordered list of section names. Every
// mutation persists the full list first, fires a best-effort shadow
// backup, and only then commits the new list to memory, so cached state
// never diverges from confirmed-persisted state on failure.
type SectionStore struct {
	store   storage.Store
	backups *backup.Manager
	keys    Keys
	logger  *slog.Logger

	mu       sync.Mutex
	sections []string
	loading  bool
}

// NewSectionStore creates a SectionStore. Call Load before reading
// Sections.
func NewSectionStore(store storage.Store, backups *backup.Manager, keys Keys) *SectionStore {
	return &SectionStore{
		store:   store,
		backups: backups,
		keys:    keys,
		logger:  slog.Default(),
	}
}

// Load reads the section list from the store into memory. An absent or
// malformed list yields an empty one.
func (s *SectionStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	raw, err := s.store.Get(ctx, s.keys.Sections())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.commit(nil)
			return nil
		}
		return WrapError(err, "failed to load sections")
	}

	var sections []string
	if err := json.Unmarshal([]byte(raw), &sections); err != nil {
		s.logger.WarnContext(ctx, "section list is malformed, starting empty", "error", err)
		s.commit(nil)
		return nil
	}

	s.commit(sections)
	return nil
}

// Refresh forces a re-read from the store. External collaborators call
// this after out-of-band mutation such as an archive import.
func (s *SectionStore) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Sections returns a snapshot of the current section names.
func (s *SectionStore) Sections() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sections))
	copy(out, s.sections)
	return out
}

// Loading reports whether a load is in flight.
func (s *SectionStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Add prepends a new section name to the list. The name is trimmed; an
// empty result is a validation error and a duplicate is ErrNameExists.
func (s *SectionStore) Add(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "cannot be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contains(name) {
		return fmt.Errorf("%w: %q", ErrNameExists, name)
	}

	updated := append([]string{name}, s.sections...)
	if err := s.persist(ctx, updated); err != nil {
		return WrapError(err, "failed to add section")
	}
	s.backups.Create(ctx, s.keys.Sections(), updated)

	s.sections = updated
	s.logger.InfoContext(ctx, "section added", "name", name)
	return nil
}

// Delete removes a section and destroys its items and their backup.
// The list write is authoritative; if the item keys cannot be removed
// afterwards the orphaned keys are logged distinctly and the deletion
// still stands.
func (s *SectionStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.contains(name) {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}

	updated := make([]string, 0, len(s.sections)-1)
	for _, existing := range s.sections {
		if existing != name {
			updated = append(updated, existing)
		}
	}

	if err := s.persist(ctx, updated); err != nil {
		return WrapError(err, "failed to delete section")
	}
	s.backups.Create(ctx, s.keys.Sections(), updated)

	itemsKey := s.keys.Items(name)
	if err := s.store.Remove(ctx, itemsKey); err != nil {
		s.logger.WarnContext(ctx, "section deleted but items key is orphaned", "key", itemsKey, "error", err)
	}
	backupKey := s.backups.KeyFor(itemsKey)
	if err := s.store.Remove(ctx, backupKey); err != nil {
		s.logger.WarnContext(ctx, "section deleted but items backup key is orphaned", "key", backupKey, "error", err)
	}

	s.sections = updated
	s.logger.InfoContext(ctx, "section deleted", "name", name)
	return nil
}

// Rename replaces oldName with newName in place and migrates the item
// partition to the new key. Renaming to an existing name fails with
// ErrNameExists and leaves the section and its items untouched.
func (s *SectionStore) Rename(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return &ValidationError{Field: "newName", Message: "cannot be empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.contains(newName) {
		return fmt.Errorf("%w: %q", ErrNameExists, newName)
	}
	if !s.contains(oldName) {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, oldName)
	}

	updated := make([]string, len(s.sections))
	for i, existing := range s.sections {
		if existing == oldName {
			updated[i] = newName
		} else {
			updated[i] = existing
		}
	}

	if err := s.persist(ctx, updated); err != nil {
		return WrapError(err, "failed to rename section")
	}

	// Migrate the item partition verbatim; no entry is altered. A
	// section with no stored items has no key to copy.
	oldItemsKey := s.keys.Items(oldName)
	newItemsKey := s.keys.Items(newName)
	raw, err := s.store.Get(ctx, oldItemsKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return WrapError(err, "failed to read items during rename")
	}
	if err == nil {
		if err := s.store.Set(ctx, newItemsKey, raw); err != nil {
			return WrapError(err, "failed to migrate items during rename")
		}
		s.backups.Create(ctx, newItemsKey, json.RawMessage(raw))

		if err := s.store.Remove(ctx, oldItemsKey); err != nil {
			s.logger.WarnContext(ctx, "section renamed but old items key is orphaned", "key", oldItemsKey, "error", err)
		}
		oldBackupKey := s.backups.KeyFor(oldItemsKey)
		if err := s.store.Remove(ctx, oldBackupKey); err != nil {
			s.logger.WarnContext(ctx, "section renamed but old items backup key is orphaned", "key", oldBackupKey, "error", err)
		}
	}

	s.backups.Create(ctx, s.keys.Sections(), updated)

	s.sections = updated
	s.logger.InfoContext(ctx, "section renamed", "old", oldName, "new", newName)
	return nil
}

// persist writes the full section list under the sections key.
func (s *SectionStore) persist(ctx context.Context, sections []string) error {
	data, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("failed to marshal sections: %w", err)
	}
	return s.store.Set(ctx, s.keys.Sections(), string(data))
}

func (s *SectionStore) contains(name string) bool {
	for _, existing := range s.sections {
		if existing == name {
			return true
		}
	}
	return false
}

func (s *SectionStore) commit(sections []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sections == nil {
		sections = []string{}
	}
	s.sections = sections
}
