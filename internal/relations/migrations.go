package relations

import (
	"database/sql"

	"github.com/HerbHall/fleetgate/pkg/extension"
)

func migrations() []extension.Migration {
	return []extension.Migration{
		{
			Version:     1,
			Description: "create relations table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE IF NOT EXISTS relations (
						id TEXT PRIMARY KEY,
						provider TEXT NOT NULL,
						target TEXT NOT NULL,
						relation_type TEXT NOT NULL,
						metadata TEXT NOT NULL DEFAULT '{}',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
					`CREATE INDEX IF NOT EXISTS idx_relations_provider ON relations(provider)`,
					`CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target)`,
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

// Migrations exposes the relations schema for the main wiring.
func Migrations() []extension.Migration {
	return migrations()
}
