package token

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Record is one stored credential row, including ciphertext. Never exposed
// outside this package; callers receive the models.TokenDetail projection.
type Record struct {
	EndpointGUID  string
	UserGUID      string // empty for the system-shared record
	SystemShared  bool
	EncryptedData []byte
	Metadata      map[string]string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store provides database access for the token module.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store wrapping the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetSalt returns the singleton key-derivation salt, or nil if not yet set.
func (s *Store) GetSalt(ctx context.Context) ([]byte, error) {
	var salt []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT salt FROM token_master WHERE id = 1`,
	).Scan(&salt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get token salt: %w", err)
	}
	return salt, nil
}

// PutSalt stores the singleton key-derivation salt.
func (s *Store) PutSalt(ctx context.Context, salt []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO token_master (id, salt) VALUES (1, ?)
		 ON CONFLICT(id) DO NOTHING`,
		salt,
	)
	if err != nil {
		return fmt.Errorf("put token salt: %w", err)
	}
	return nil
}

// Get returns the record for (endpoint, user). An empty userGUID addresses
// the system-shared record. Returns nil, nil if absent.
func (s *Store) Get(ctx context.Context, endpointGUID, userGUID string) (*Record, error) {
	var (
		rec      Record
		shared   int
		metaJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT endpoint_guid, user_guid, system_shared, encrypted_data, metadata, created_at, updated_at
		FROM token_records WHERE endpoint_guid = ? AND user_guid = ?`,
		endpointGUID, userGUID,
	).Scan(&rec.EndpointGUID, &rec.UserGUID, &shared, &rec.EncryptedData,
		&metaJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get token record: %w", err)
	}
	rec.SystemShared = shared != 0
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal token metadata: %w", err)
		}
	}
	return &rec, nil
}

// Upsert inserts or replaces the record for (endpoint, user) in one statement,
// so a concurrent resolve sees either the old or the new row, never a mix.
func (s *Store) Upsert(ctx context.Context, rec *Record) error {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal token metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO token_records (endpoint_guid, user_guid, system_shared, encrypted_data, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(endpoint_guid, user_guid) DO UPDATE SET
			system_shared = excluded.system_shared,
			encrypted_data = excluded.encrypted_data,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		rec.EndpointGUID, rec.UserGUID, rec.SystemShared, rec.EncryptedData,
		string(meta), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token record: %w", err)
	}
	return nil
}

// Delete removes the record for (endpoint, user). A single DELETE keeps
// revocation atomic per record. Returns the number of rows deleted.
func (s *Store) Delete(ctx context.Context, endpointGUID, userGUID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM token_records WHERE endpoint_guid = ? AND user_guid = ?`,
		endpointGUID, userGUID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete token record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete token rows affected: %w", err)
	}
	return n, nil
}

// DeleteForEndpoint removes all records for an endpoint (used on unregister).
func (s *Store) DeleteForEndpoint(ctx context.Context, endpointGUID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM token_records WHERE endpoint_guid = ?`, endpointGUID,
	)
	if err != nil {
		return fmt.Errorf("delete endpoint tokens: %w", err)
	}
	return nil
}
