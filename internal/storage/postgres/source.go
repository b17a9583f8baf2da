package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"content_syncer/internal/domain"
)

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

type sourceRow struct {
	ID         string         `db:"id"`
	Type       string         `db:"type"`
	ExternalID string         `db:"external_id"`
	Name       sql.NullString `db:"name"`
	Active     bool           `db:"active"`
	Metadata   []byte         `db:"metadata"`
	LastSyncAt sql.NullTime   `db:"last_sync_at"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

const sourceColumns = `id, type, external_id, name, active, metadata, last_sync_at, created_at, updated_at`

func (r *sourceRow) toDomain() (*domain.Source, error) {
	source := &domain.Source{
		ID:         r.ID,
		Type:       domain.SourceType(r.Type),
		ExternalID: r.ExternalID,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Name.Valid {
		source.Name = &r.Name.String
	}
	if r.LastSyncAt.Valid {
		t := r.LastSyncAt.Time
		source.LastSyncAt = &t
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &source.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata for source %s: %w", r.ID, err)
		}
	}
	return source, nil
}

func (s *SourceStore) Get(ctx context.Context, id string) (*domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	var row sourceRow
	err := s.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

func (s *SourceStore) ListActive(ctx context.Context) ([]domain.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE active ORDER BY created_at`

	var rows []sourceRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	sources := make([]domain.Source, 0, len(rows))
	for i := range rows {
		source, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}
	return sources, nil
}

func (s *SourceStore) TouchLastSync(ctx context.Context, id string, ts time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_sync_at = $2, updated_at = NOW() WHERE id = $1`,
		id, ts,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSourceNotFound, id)
	}
	return nil
}
