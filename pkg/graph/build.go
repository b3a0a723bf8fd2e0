package graph

import (
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// Build derives a fresh graph from snapshot tables and columns.
// Rows missing any identity part are skipped. A column whose table row is
// absent still gets its database, schema and table nodes so no edge dangles.
func Build(tables, columns []models.Row) *Graph {
	g := New()

	for _, t := range tables {
		db, schema, table := t.String("database_name"), t.String("schema_name"), t.String("table_name")
		if db == "" || schema == "" || table == "" {
			continue
		}
		tableID := g.ensureTable(db, schema, table)
		g.UpsertNode(tableID, LabelTable, map[string]any{"row_count": t["row_count"]})
	}

	for _, c := range columns {
		db, schema, table := c.String("database_name"), c.String("schema_name"), c.String("table_name")
		column := c.String("column_name")
		if db == "" || schema == "" || table == "" || column == "" {
			continue
		}
		tableID := g.ensureTable(db, schema, table)
		colID := tableID + "." + column
		g.UpsertNode(colID, LabelColumn, map[string]any{
			"name":      column,
			"data_type": c["data_type"],
		})
		g.AddEdge(tableID, colID, EdgeHasColumn)
	}

	return g
}

// ensureTable upserts the database, schema and table chain and returns the
// table id.
func (g *Graph) ensureTable(db, schema, table string) string {
	schemaID := db + "." + schema
	tableID := schemaID + "." + table

	g.UpsertNode(db, LabelDatabase, map[string]any{"name": db})
	g.UpsertNode(schemaID, LabelSchema, map[string]any{"name": schema})
	g.UpsertNode(tableID, LabelTable, map[string]any{"name": table})
	g.AddEdge(db, schemaID, EdgeContains)
	g.AddEdge(schemaID, tableID, EdgeContains)
	return tableID
}
