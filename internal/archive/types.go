package archive

import "diarykeeper/internal/diary"

// snapshotVersion is the wire version of the archive file format.
const snapshotVersion = "1.0"

// Metadata describes an archive snapshot.
type Metadata struct {
	Version       string `json:"version"`
	Timestamp     string `json:"timestamp"`
	AppName       string `json:"appName"`
	TotalSections int    `json:"totalSections"`
	TotalItems    int    `json:"totalItems"`
}

// Snapshot is the full-collection export unit and the backup file
// format: the section list plus every section's entry list.
type Snapshot struct {
	Metadata   Metadata                 `json:"metadata"`
	Sections   []string                 `json:"sections"`
	Items      map[string][]diary.Entry `json:"items"`
	TotalItems int                      `json:"totalItems"`
}

// ValidationResult reports whether an imported document is structurally
// sound, with a reason when it is not.
type ValidationResult struct {
	IsValid bool   `json:"isValid"`
	Error   string `json:"error,omitempty"`
}

// Outcome classifies how an import attempt ended.
type Outcome string

const (
	// OutcomeSuccess means the snapshot was restored.
	OutcomeSuccess Outcome = "success"
	// OutcomeCancelled means the user declined; not an error.
	OutcomeCancelled Outcome = "cancelled"
	// OutcomeInvalid means validation rejected the document before any write.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeFailed means the restore itself failed.
	OutcomeFailed Outcome = "failed"
)

// ImportSummary describes the scope of a pending import, shown to the
// user before confirmation.
type ImportSummary struct {
	Sections   int  `json:"sections"`
	TotalItems int  `json:"totalItems"`
	Replace    bool `json:"replace"`
}

// ImportResult is the terminal state of one import flow.
type ImportResult struct {
	Outcome    Outcome `json:"outcome"`
	Error      string  `json:"error,omitempty"`
	Sections   int     `json:"sections"`
	TotalItems int     `json:"totalItems"`
}

// Info is a live recomputation of collection totals, always consistent
// with current stored state.
type Info struct {
	Sections     int    `json:"sections"`
	TotalItems   int    `json:"totalItems"`
	LastModified string `json:"lastModified"`
}
