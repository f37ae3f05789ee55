package types

import "time"

const ExportVersion = "1.0"

type ExportMetadata struct {
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	IncludeEvents bool      `json:"include_events"`
}

type ExportDocument struct {
	Metadata ExportMetadata `json:"export_metadata"`
	Users    []Member       `json:"users"`
	Events   []EventRecord  `json:"events,omitempty"`
}

type ImportMode string

const (
	ImportMerge   ImportMode = "merge"
	ImportReplace ImportMode = "replace"
)

type ImportData struct {
	Users  []Member      `json:"users"`
	Events []EventRecord `json:"events"`
}

type ImportRequest struct {
	Data           *ImportData `json:"data"`
	Mode           ImportMode  `json:"mode"`
	SkipDuplicates *bool       `json:"skip_duplicates"`
}

type ImportError struct {
	CardNumber *uint32 `json:"card_number,omitempty"`
	EventID    *uint32 `json:"event_id,omitempty"`
	Error      string  `json:"error"`
}

type ImportCounts struct {
	Added   int           `json:"added"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors"`
}

type ImportResult struct {
	Users  ImportCounts `json:"users"`
	Events ImportCounts `json:"events"`
}
