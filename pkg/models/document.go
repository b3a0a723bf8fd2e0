package models

// Document is one retrievable unit of the metadata corpus.
type Document struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Metadata Row    `json:"metadata"`
}

// Document id prefixes by entity kind.
const (
	DocTablePrefix    = "table::"
	DocColumnPrefix   = "column::"
	DocColStatsPrefix = "colstats::"
	DocQueryPrefix    = "query::"
)
