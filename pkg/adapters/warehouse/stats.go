package warehouse

import (
	"fmt"
	"strings"
)

// QuoteIdent quotes an identifier for this dialect, doubling any embedded
// closing quote. Names that already start with the opening quote are kept.
func (d *Dialect) QuoteIdent(name string) string {
	if name == "" {
		return name
	}
	left, right := `"`, `"`
	if d.IdentQuote == "[" {
		left, right = "[", "]"
	}
	if strings.HasPrefix(name, left) {
		return name
	}
	return left + strings.ReplaceAll(name, right, right+right) + right
}

// QualifiedTable builds database.schema.table, dropping the database when
// schema is unknown and both when only the table is known.
func (d *Dialect) QualifiedTable(database, schema, table string) string {
	switch {
	case database != "" && schema != "":
		return d.QuoteIdent(database) + "." + d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
	case schema != "":
		return d.QuoteIdent(schema) + "." + d.QuoteIdent(table)
	}
	return d.QuoteIdent(table)
}

// StatsQuery returns the sampling statement for one column. Numeric columns
// report min_value/max_value, temporal ones min_date/max_date, and all of
// them distinct_count.
func (d *Dialect) StatsQuery(database, schema, table, column, dataType string) string {
	fq := d.QualifiedTable(database, schema, table)
	col := d.QuoteIdent(column)

	switch d.Classify(dataType) {
	case TypeNumeric:
		return fmt.Sprintf("SELECT MIN(%[1]s) AS min_value, MAX(%[1]s) AS max_value, COUNT(DISTINCT %[1]s) AS distinct_count FROM %[2]s", col, fq)
	case TypeTemporal:
		return fmt.Sprintf("SELECT MIN(%[1]s) AS min_date, MAX(%[1]s) AS max_date, COUNT(DISTINCT %[1]s) AS distinct_count FROM %[2]s", col, fq)
	}
	return fmt.Sprintf("SELECT COUNT(DISTINCT %s) AS distinct_count FROM %s", col, fq)
}
