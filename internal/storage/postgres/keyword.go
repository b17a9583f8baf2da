package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// KeywordStore persists analysis keywords as a shared relational vocabulary
// so content can be filtered by keyword without unpacking analysis JSON.
type KeywordStore struct {
	db *sqlx.DB
}

func NewKeywordStore(db *sqlx.DB) *KeywordStore {
	return &KeywordStore{db: db}
}

// UpsertBatch inserts the labels that are new and returns the ids of every
// label in input order (duplicates collapsed).
func (s *KeywordStore) UpsertBatch(ctx context.Context, labels []string) ([]int64, error) {
	deduped := make([]string, 0, len(labels))
	seen := make(map[string]bool, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(strings.ToLower(label))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		deduped = append(deduped, label)
	}
	if len(deduped) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO keywords (label) VALUES ")
	args := make([]interface{}, 0, len(deduped))
	for i, label := range deduped {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($")
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(")")
		args = append(args, label)
	}
	sb.WriteString(" ON CONFLICT (label) DO UPDATE SET label = EXCLUDED.label RETURNING id")

	rows, err := GetExecutor(ctx, s.db).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, len(deduped))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LinkToContent replaces the content's keyword set with the given ids.
func (s *KeywordStore) LinkToContent(ctx context.Context, contentID string, keywordIDs []int64) error {
	exec := GetExecutor(ctx, s.db)

	if _, err := exec.ExecContext(ctx,
		"DELETE FROM content_keywords WHERE content_id = $1", contentID,
	); err != nil {
		return err
	}

	if len(keywordIDs) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO content_keywords (content_id, keyword_id) VALUES ")
	args := make([]interface{}, 0, len(keywordIDs)+1)
	args = append(args, contentID)

	for i, keywordID := range keywordIDs {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("($1, $")
		sb.WriteString(strconv.Itoa(i + 2))
		sb.WriteString(")")
		args = append(args, keywordID)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	_, err := exec.ExecContext(ctx, sb.String(), args...)
	return err
}

// GetByContentID returns the keyword labels linked to one content row.
func (s *KeywordStore) GetByContentID(ctx context.Context, contentID string) ([]string, error) {
	query := `
		SELECT k.label
		FROM keywords k
		INNER JOIN content_keywords ck ON ck.keyword_id = k.id
		WHERE ck.content_id = $1
		ORDER BY k.label`

	var labels []string
	err := s.db.SelectContext(ctx, &labels, query, contentID)
	return labels, err
}
