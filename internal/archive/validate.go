package archive

import (
	"encoding/json"
	"fmt"

	"diarykeeper/internal/diary"
)

// Validate checks the structural contract of an imported document:
// metadata must be present, sections must be an array of strings, items
// must be an object, and every section listed in sections that appears
// in items must map to an entry array. It never panics; malformed input
// is reported as a reason string.
func Validate(raw []byte) ValidationResult {
	var probe struct {
		Metadata json.RawMessage `json:"metadata"`
		Sections json.RawMessage `json:"sections"`
		Items    json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return invalid(fmt.Sprintf("not a valid backup document: %v", err))
	}

	if len(probe.Metadata) == 0 || string(probe.Metadata) == "null" {
		return invalid("missing metadata")
	}
	var metadata Metadata
	if err := json.Unmarshal(probe.Metadata, &metadata); err != nil {
		return invalid(fmt.Sprintf("malformed metadata: %v", err))
	}

	if len(probe.Sections) == 0 || string(probe.Sections) == "null" {
		return invalid("missing sections")
	}
	var sections []string
	if err := json.Unmarshal(probe.Sections, &sections); err != nil {
		return invalid("sections must be an array of strings")
	}

	if len(probe.Items) == 0 || string(probe.Items) == "null" {
		return invalid("missing items")
	}
	var items map[string]json.RawMessage
	if err := json.Unmarshal(probe.Items, &items); err != nil {
		return invalid("items must be an object keyed by section name")
	}

	for _, name := range sections {
		rawItems, ok := items[name]
		if !ok {
			continue
		}
		var entries []diary.Entry
		if err := json.Unmarshal(rawItems, &entries); err != nil {
			return invalid(fmt.Sprintf("items for section %q must be an entry array", name))
		}
	}

	return ValidationResult{IsValid: true}
}

func invalid(reason string) ValidationResult {
	return ValidationResult{IsValid: false, Error: reason}
}
