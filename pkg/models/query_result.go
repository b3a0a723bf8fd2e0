package models

// QueryResult is the outcome of running a generated statement.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
	Notes     []string `json:"notes"`
}
