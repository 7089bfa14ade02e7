package archive_test

import (
	"strings"
	"testing"

	"diarykeeper/internal/archive"
)

func TestValidate(t *testing.T) {
	valid := `{
		"metadata": {"version":"1.0","timestamp":"2026-01-01T00:00:00Z","appName":"Personal Diary","totalSections":1,"totalItems":1},
		"sections": ["Notes"],
		"items": {"Notes": [{"id":1,"text":"hello","createdAt":"2026-01-01T00:00:00Z","lastModified":"2026-01-01T00:00:00Z"}]},
		"totalItems": 1
	}`

	tests := []struct {
		name       string
		input      string
		wantValid  bool
		wantReason string
	}{
		{
			name:      "valid document",
			input:     valid,
			wantValid: true,
		},
		{
			name:      "section listed without items is allowed",
			input:     `{"metadata":{},"sections":["Notes","Work"],"items":{}}`,
			wantValid: true,
		},
		{
			name:       "not JSON",
			input:      "not json at all",
			wantReason: "not a valid backup document",
		},
		{
			name:       "missing metadata",
			input:      `{"sections":[],"items":{}}`,
			wantReason: "missing metadata",
		},
		{
			name:       "missing items",
			input:      `{"metadata":{},"sections":[]}`,
			wantReason: "missing items",
		},
		{
			name:       "sections not an array",
			input:      `{"metadata":{},"sections":"Notes","items":{}}`,
			wantReason: "sections must be an array",
		},
		{
			name:       "items not an object",
			input:      `{"metadata":{},"sections":[],"items":[1,2]}`,
			wantReason: "items must be an object",
		},
		{
			name:       "section items not an array",
			input:      `{"metadata":{},"sections":["Notes"],"items":{"Notes":{"id":1}}}`,
			wantReason: `items for section "Notes"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := archive.Validate([]byte(tt.input))

			if result.IsValid != tt.wantValid {
				t.Errorf("Validate() IsValid = %v, want %v (reason %q)", result.IsValid, tt.wantValid, result.Error)
			}
			if tt.wantValid {
				if result.Error != "" {
					t.Errorf("Validate() Error = %q, want empty", result.Error)
				}
				return
			}
			if result.Error == "" {
				t.Error("Validate() Error is empty, want a reason")
			}
			if !strings.Contains(result.Error, tt.wantReason) {
				t.Errorf("Validate() Error = %q, want it to contain %q", result.Error, tt.wantReason)
			}
		})
	}
}
