// Package corpus flattens a metadata snapshot into retrievable documents.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// Missing is rendered for absent or null fields.
const Missing = "None"

// MaxQueryTextLength bounds the query text embedded in query documents.
const MaxQueryTextLength = 500

var identityKeys = map[string]bool{
	"database_name": true,
	"schema_name":   true,
	"table_name":    true,
	"column_name":   true,
}

// statsKeyOrder puts known statistic fields first; any others follow sorted.
var statsKeyOrder = []string{"data_type", "min_value", "max_value", "min_date", "max_date", "distinct_count"}

// Build returns table, column, column-stat and query documents, in that
// order. Output depends only on the snapshot contents. Ids are unique: when
// two rows render to the same id, the first one is kept.
func Build(snapshot *models.MetadataSnapshot) []models.Document {
	docs := make([]models.Document, 0,
		len(snapshot.Tables)+len(snapshot.Columns)+len(snapshot.ColumnStats)+len(snapshot.QueryHistory))

	for _, t := range snapshot.Tables {
		fq := qualified(t, "database_name", "schema_name", "table_name")
		text := fmt.Sprintf("Table %s has row_count=%s created=%s last_altered=%s",
			fq, Format(t["row_count"]), Format(t["created"]), Format(t["last_altered"]))
		docs = append(docs, models.Document{ID: models.DocTablePrefix + fq, Text: text, Metadata: t})
	}

	for _, c := range snapshot.Columns {
		fq := qualified(c, "database_name", "schema_name", "table_name", "column_name")
		text := fmt.Sprintf("Column %s type=%s nullable=%s",
			fq, Format(c["data_type"]), Format(c["is_nullable"]))
		docs = append(docs, models.Document{ID: models.DocColumnPrefix + fq, Text: text, Metadata: c})
	}

	for _, s := range snapshot.ColumnStats {
		fq := qualified(s, "database_name", "schema_name", "table_name", "column_name")
		parts := make([]string, 0, len(s))
		for _, k := range statsKeys(s) {
			parts = append(parts, k+"="+Format(s[k]))
		}
		text := fmt.Sprintf("Stats for %s: %s", fq, strings.Join(parts, ", "))
		docs = append(docs, models.Document{ID: models.DocColStatsPrefix + fq, Text: text, Metadata: s})
	}

	for _, q := range snapshot.QueryHistory {
		queryText := Missing
		if v, ok := q["query_text"]; ok && v != nil {
			queryText = truncateRunes(Format(v), MaxQueryTextLength)
		}
		text := fmt.Sprintf("Query on %s.%s status=%s elapsed_ms=%s text=%s",
			Format(q["database_name"]), Format(q["schema_name"]),
			Format(q["execution_status"]), Format(q["total_elapsed_time"]), queryText)
		docs = append(docs, models.Document{ID: QueryDocumentID(text), Text: text, Metadata: q})
	}

	return dedupe(docs)
}

func dedupe(docs []models.Document) []models.Document {
	seen := make(map[string]bool, len(docs))
	out := docs[:0]
	for _, d := range docs {
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out
}

// QueryDocumentID hashes the rendered text, so the same query text always
// maps to the same id.
func QueryDocumentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return models.DocQueryPrefix + hex.EncodeToString(sum[:])[:16]
}

// Format renders a JSON-safe scalar for document text.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return Format(float64(x))
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func qualified(row models.Row, keys ...string) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = Format(row[k])
	}
	return strings.Join(parts, ".")
}

func statsKeys(row models.Row) []string {
	keys := make([]string, 0, len(row))
	known := make(map[string]bool, len(statsKeyOrder))
	for _, k := range statsKeyOrder {
		known[k] = true
		if _, ok := row[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range row {
		if !known[k] && !identityKeys[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Filter keeps documents whose text or any metadata value contains q,
// case-insensitively. An empty q returns docs unchanged.
func Filter(docs []models.Document, q string) []models.Document {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return docs
	}
	out := []models.Document{}
	for _, d := range docs {
		if matches(d, q) {
			out = append(out, d)
		}
	}
	return out
}

func matches(d models.Document, q string) bool {
	if strings.Contains(strings.ToLower(d.Text), q) || strings.Contains(strings.ToLower(d.ID), q) {
		return true
	}
	for _, v := range d.Metadata {
		if v != nil && strings.Contains(strings.ToLower(Format(v)), q) {
			return true
		}
	}
	return false
}

// Summary is a short description used in log lines.
func Summary(docs []models.Document) string {
	counts := map[string]int{}
	for _, d := range docs {
		kind, _, _ := strings.Cut(d.ID, "::")
		counts[kind]++
	}
	return fmt.Sprintf("tables=%d columns=%d colstats=%d queries=%d",
		counts["table"], counts["column"], counts["colstats"], counts["query"])
}

