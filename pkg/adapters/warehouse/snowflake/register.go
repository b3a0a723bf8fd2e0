package snowflake

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"

func init() {
	warehouse.Register(warehouse.Registration{
		Info: warehouse.AdapterInfo{
			Type:        "snowflake",
			DisplayName: "Snowflake",
			Description: "Snowflake accounts, database- or account-scoped",
		},
		Factory: Connect,
	})
}
