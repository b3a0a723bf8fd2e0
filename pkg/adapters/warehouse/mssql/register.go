package mssql

import "github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"

func init() {
	warehouse.Register(warehouse.Registration{
		Info: warehouse.AdapterInfo{
			Type:        "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "SQL Server 2019+ and Azure SQL Database",
		},
		Factory: Connect,
	})
}
