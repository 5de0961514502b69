package endpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/fleetgate/pkg/models"
)

// Store provides database access for the endpoint registry.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store wrapping the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const endpointColumns = `guid, name, type, version, api_endpoint, admin_only, metadata, created_at, updated_at`

// List returns all registered endpoints in registration order.
func (s *Store) List(ctx context.Context) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+endpointColumns+` FROM endpoints ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []models.Endpoint
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, rows.Err()
}

// Get returns the endpoint with the given GUID. Returns nil, nil if not found.
func (s *Store) Get(ctx context.Context, guid string) (*models.Endpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+endpointColumns+` FROM endpoints WHERE guid = ?`, guid,
	)
	ep, err := scanEndpoint(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &ep, nil
}

// Insert adds a new endpoint record.
func (s *Store) Insert(ctx context.Context, ep *models.Endpoint) error {
	meta, err := json.Marshal(ep.Metadata)
	if err != nil {
		return fmt.Errorf("marshal endpoint metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO endpoints (guid, name, type, version, api_endpoint, admin_only, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ep.GUID, ep.Name, string(ep.Type), ep.Version, ep.APIEndpoint,
		ep.AdminOnly, string(meta), ep.CreatedAt, ep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert endpoint: %w", err)
	}
	return nil
}

// Delete removes an endpoint record. Returns the number of rows deleted.
func (s *Store) Delete(ctx context.Context, guid string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE guid = ?`, guid)
	if err != nil {
		return 0, fmt.Errorf("delete endpoint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete endpoint rows affected: %w", err)
	}
	return n, nil
}

// UpdateDisplay updates the mutable display fields (name, version, metadata).
// GUID and type are immutable after registration.
func (s *Store) UpdateDisplay(ctx context.Context, guid, name, version string, metadata map[string]string) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal endpoint metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE endpoints SET name = ?, version = ?, metadata = ?, updated_at = ?
		WHERE guid = ?`,
		name, version, string(meta), time.Now().UTC(), guid,
	)
	if err != nil {
		return fmt.Errorf("update endpoint: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanEndpoint.
type scanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(row scanner) (models.Endpoint, error) {
	var (
		ep       models.Endpoint
		typeTag  string
		metaJSON string
	)
	err := row.Scan(&ep.GUID, &ep.Name, &typeTag, &ep.Version, &ep.APIEndpoint,
		&ep.AdminOnly, &metaJSON, &ep.CreatedAt, &ep.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ep, err
		}
		return ep, fmt.Errorf("scan endpoint row: %w", err)
	}
	ep.Type = models.EndpointType(typeTag)
	if metaJSON != "" && metaJSON != "{}" {
		if err := json.Unmarshal([]byte(metaJSON), &ep.Metadata); err != nil {
			return ep, fmt.Errorf("unmarshal endpoint metadata: %w", err)
		}
	}
	return ep, nil
}
