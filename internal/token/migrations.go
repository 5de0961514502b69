package token

import (
	"database/sql"

	"github.com/HerbHall/fleetgate/pkg/extension"
)

func migrations() []extension.Migration {
	return []extension.Migration{
		{
			Version:     1,
			Description: "create token tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					// user_guid is '' for the per-endpoint system-shared record,
					// which keeps (endpoint_guid, user_guid) a usable primary key.
					`CREATE TABLE IF NOT EXISTS token_records (
						endpoint_guid TEXT NOT NULL,
						user_guid TEXT NOT NULL DEFAULT '',
						system_shared INTEGER NOT NULL DEFAULT 0,
						encrypted_data BLOB NOT NULL,
						metadata TEXT NOT NULL DEFAULT '{}',
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
						PRIMARY KEY (endpoint_guid, user_guid)
					)`,
					`CREATE INDEX IF NOT EXISTS idx_token_records_user ON token_records(user_guid)`,

					`CREATE TABLE IF NOT EXISTS token_master (
						id INTEGER PRIMARY KEY CHECK (id = 1),
						salt BLOB NOT NULL,
						created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
					)`,
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

// Migrations exposes the token schema for the main wiring.
func Migrations() []extension.Migration {
	return migrations()
}
