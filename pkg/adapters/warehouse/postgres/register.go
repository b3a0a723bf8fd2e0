package postgres

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"

func init() {
	warehouse.Register(warehouse.Registration{
		Info: warehouse.AdapterInfo{
			Type:        "postgres",
			DisplayName: "PostgreSQL",
			Description: "PostgreSQL 12+, Aurora PostgreSQL, Supabase",
		},
		Factory: Connect,
	})
}
