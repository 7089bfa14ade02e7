package diary

// Keys derives every primary key the diary persists. A non-empty
// Namespace prefixes all keys, so tests and parallel instances can run
// against isolated namespaces in the same store.
type Keys struct {
	Namespace string
}

// Sections returns the key holding the ordered section name list.
func (k Keys) Sections() string {
	return k.Namespace + "@diary_sections"
}

// Items returns the key holding the entry list for a section.
func (k Keys) Items(section string) string {
	return k.Namespace + "@diary_items_" + section
}
