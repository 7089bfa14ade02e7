package diary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"diarykeeper/internal/backup"
	"diarykeeper/internal/storage"
)

// ItemStore manages the ordered entry list of one section. Like
// SectionStore, every mutation persists first, backs up best-effort,
// and commits to memory last; a failed write leaves the cached list at
// its pre-mutation value.
type ItemStore struct {
	store   storage.Store
	backups *backup.Manager
	keys    Keys
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	section string
	items   []Entry
	loading bool
}

// NewItemStore creates an ItemStore scoped to the given section name.
// Call Load (or ForSection) before reading Items.
func NewItemStore(store storage.Store, backups *backup.Manager, keys Keys, section string) *ItemStore {
	return &ItemStore{
		store:   store,
		backups: backups,
		keys:    keys,
		logger:  slog.Default(),
		now:     time.Now,
		section: section,
	}
}

// ForSection switches the store to another section and reloads.
func (s *ItemStore) ForSection(ctx context.Context, section string) error {
	s.mu.Lock()
	s.section = section
	s.mu.Unlock()
	return s.Load(ctx)
}

// Section returns the section name this store is scoped to.
func (s *ItemStore) Section() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.section
}

// Load reads the section's entry list from the store into memory. An
// absent or malformed list yields an empty one.
func (s *ItemStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	key := s.keys.Items(s.section)
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.commit(nil)
			return nil
		}
		return WrapError(err, "failed to load items")
	}

	var items []Entry
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.WarnContext(ctx, "item list is malformed, starting empty", "section", s.Section(), "error", err)
		s.commit(nil)
		return nil
	}

	s.commit(items)
	return nil
}

// Items returns a snapshot of the current entries.
func (s *ItemStore) Items() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.items))
	copy(out, s.items)
	return out
}

// Loading reports whether a load is in flight.
func (s *ItemStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Add creates a new entry from text and prepends it to the list.
// Returns the created entry.
func (s *ItemStore) Add(ctx context.Context, text string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var prevHead int64
	if len(s.items) > 0 {
		prevHead = s.items[0].ID
	}
	entry := newEntry(text, s.now(), prevHead)

	updated := append([]Entry{entry}, s.items...)
	if err := s.persist(ctx, updated); err != nil {
		return Entry{}, WrapError(err, "failed to add item")
	}
	s.backups.Create(ctx, s.keys.Items(s.section), updated)

	s.items = updated
	s.logger.InfoContext(ctx, "item added", "section", s.section, "id", entry.ID)
	return entry, nil
}

// Update replaces the text of the entry at index and refreshes its
// LastModified stamp. The ID and CreatedAt never change.
func (s *ItemStore) Update(ctx context.Context, index int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	updated := make([]Entry, len(s.items))
	copy(updated, s.items)
	updated[index].Text = text
	updated[index].LastModified = s.now().UTC().Format(time.RFC3339)

	if err := s.persist(ctx, updated); err != nil {
		return WrapError(err, "failed to update item")
	}
	s.backups.Create(ctx, s.keys.Items(s.section), updated)

	s.items = updated
	return nil
}

// Delete removes the entry at index.
func (s *ItemStore) Delete(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	updated := make([]Entry, 0, len(s.items)-1)
	updated = append(updated, s.items[:index]...)
	updated = append(updated, s.items[index+1:]...)

	if err := s.persist(ctx, updated); err != nil {
		return WrapError(err, "failed to delete item")
	}
	s.backups.Create(ctx, s.keys.Items(s.section), updated)

	s.items = updated
	return nil
}

// Clear removes every entry in the section.
func (s *ItemStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := []Entry{}
	if err := s.persist(ctx, updated); err != nil {
		return WrapError(err, "failed to clear items")
	}
	s.backups.Create(ctx, s.keys.Items(s.section), updated)

	s.items = updated
	return nil
}

// persist writes the full entry list under the section's items key.
func (s *ItemStore) persist(ctx context.Context, items []Entry) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal items: %w", err)
	}
	return s.store.Set(ctx, s.keys.Items(s.section), string(data))
}

func (s *ItemStore) commit(items []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if items == nil {
		items = []Entry{}
	}
	s.items = items
}
