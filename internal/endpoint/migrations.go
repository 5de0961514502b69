package endpoint

import (
	"database/sql"

	"github.com/HerbHall/fleetgate/pkg/extension"
)

func migrations() []extension.Migration {
	return []extension.Migration{
		{
			Version:     1,
			Description: "create endpoints table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS endpoints (
						guid TEXT PRIMARY KEY,
						name TEXT NOT NULL,
						type TEXT NOT NULL,
						version TEXT DEFAULT '',
						api_endpoint TEXT NOT NULL,
						admin_only INTEGER NOT NULL DEFAULT 0,
						metadata TEXT NOT NULL DEFAULT '{}',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_endpoints_type ON endpoints(type)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

// Migrations exposes the endpoint schema for the main wiring.
func Migrations() []extension.Migration {
	return migrations()
}
