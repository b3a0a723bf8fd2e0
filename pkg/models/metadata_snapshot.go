package models

import (
	"fmt"
	"time"
)

// Row is one warehouse result row. Keys are lower-case and values are
// JSON-safe scalars (see jsonutil.SafeValue).
type Row map[string]any

// String returns the value under key formatted as text, or "" when the key
// is absent or null.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Battery keys. The first four are the primary metadata queries.
const (
	KeyTables       = "tables"
	KeyViews        = "views"
	KeyColumns      = "columns"
	KeyForeignKeys  = "foreign_keys"
	KeyIndexes      = "indexes"
	KeyQueryHistory = "query_history"
	KeyColumnStats  = "column_stats"
)

// PrimaryKeys are the metadata queries whose total failure aborts a refresh.
var PrimaryKeys = []string{KeyTables, KeyViews, KeyColumns, KeyQueryHistory}

// MetadataSnapshot is one full capture of warehouse metadata. It is rebuilt
// from scratch on every refresh.
type MetadataSnapshot struct {
	RefreshID    string `json:"refresh_id,omitempty"`
	ExtractedAt  string `json:"extracted_at,omitempty"`
	Tables       []Row  `json:"tables"`
	Views        []Row  `json:"views"`
	Columns      []Row  `json:"columns"`
	ForeignKeys  []Row  `json:"foreign_keys"`
	Indexes      []Row  `json:"indexes"`
	QueryHistory []Row  `json:"query_history"`
	ColumnStats  []Row  `json:"column_stats"`
}

// NewMetadataSnapshot returns a snapshot with every collection initialized so
// it serializes as empty arrays rather than null.
func NewMetadataSnapshot(refreshID string, extractedAt time.Time) *MetadataSnapshot {
	return &MetadataSnapshot{
		RefreshID:    refreshID,
		ExtractedAt:  extractedAt.UTC().Format(time.RFC3339),
		Tables:       []Row{},
		Views:        []Row{},
		Columns:      []Row{},
		ForeignKeys:  []Row{},
		Indexes:      []Row{},
		QueryHistory: []Row{},
		ColumnStats:  []Row{},
	}
}

// Set stores rows under a battery key. Unknown keys are reported as false.
func (s *MetadataSnapshot) Set(key string, rows []Row) bool {
	if rows == nil {
		rows = []Row{}
	}
	switch key {
	case KeyTables:
		s.Tables = rows
	case KeyViews:
		s.Views = rows
	case KeyColumns:
		s.Columns = rows
	case KeyForeignKeys:
		s.ForeignKeys = rows
	case KeyIndexes:
		s.Indexes = rows
	case KeyQueryHistory:
		s.QueryHistory = rows
	case KeyColumnStats:
		s.ColumnStats = rows
	default:
		return false
	}
	return true
}

// Counts summarizes the snapshot for logging and reports.
func (s *MetadataSnapshot) Counts() map[string]int {
	return map[string]int{
		KeyTables:       len(s.Tables),
		KeyViews:        len(s.Views),
		KeyColumns:      len(s.Columns),
		KeyForeignKeys:  len(s.ForeignKeys),
		KeyIndexes:      len(s.Indexes),
		KeyQueryHistory: len(s.QueryHistory),
		KeyColumnStats:  len(s.ColumnStats),
	}
}
