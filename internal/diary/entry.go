package diary

import "time"

// Entry is a single free-text diary record within a section.
// ID is assigned once at creation and never changes; LastModified is
// refreshed on every edit.
type Entry struct {
	ID           int64  `json:"id"`
	Text         string `json:"text"`
	CreatedAt    string `json:"createdAt"`
	LastModified string `json:"lastModified"`
}

// newEntry builds an entry stamped with now. The ID is the creation
// time in milliseconds; prevHead guards uniqueness when two entries are
// created within the same millisecond.
func newEntry(text string, now time.Time, prevHead int64) Entry {
	id := now.UnixMilli()
	if id <= prevHead {
		id = prevHead + 1
	}
	stamp := now.UTC().Format(time.RFC3339)
	return Entry{
		ID:           id,
		Text:         text,
		CreatedAt:    stamp,
		LastModified: stamp,
	}
}
