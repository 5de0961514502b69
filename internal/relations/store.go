package relations

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/HerbHall/fleetgate/pkg/models"
)

// Store provides database access for the relation graph.
type Store struct {
	db *sql.DB
}

// NewStore creates a new Store wrapping the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListAll returns every relation in insertion order. Insertion order is the
// deterministic tie-break for everything downstream, so ORDER BY rowid here
// is load-bearing.
func (s *Store) ListAll(ctx context.Context) ([]models.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, target, relation_type, metadata, created_at
		FROM relations ORDER BY rowid`,
	)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()

	var relations []models.Relation
	for rows.Next() {
		var (
			rel      models.Relation
			metaJSON string
		)
		if err := rows.Scan(&rel.ID, &rel.Provider, &rel.Target,
			&rel.RelationType, &metaJSON, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relation row: %w", err)
		}
		if metaJSON != "" && metaJSON != "{}" {
			if err := json.Unmarshal([]byte(metaJSON), &rel.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal relation metadata: %w", err)
			}
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// Insert adds a new relation record.
func (s *Store) Insert(ctx context.Context, rel *models.Relation) error {
	meta, err := json.Marshal(rel.Metadata)
	if err != nil {
		return fmt.Errorf("marshal relation metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relations (id, provider, target, relation_type, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rel.ID, rel.Provider, rel.Target, rel.RelationType, string(meta), rel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert relation: %w", err)
	}
	return nil
}

// Delete removes a relation by ID. Returns the number of rows deleted.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM relations WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("delete relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete relation rows affected: %w", err)
	}
	return n, nil
}
