package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher with a plain ILIKE scan as a fallback when
// Meilisearch is not configured or unreachable.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" || len(q.BoardIDs) == 0 {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + q.Text + "%"
	const where = `board_id = ANY($1) AND (title ILIKE $2 OR description ILIKE $2)`

	var total int
	err := p.db.QueryRow(`SELECT COUNT(*) FROM cards WHERE `+where, q.BoardIDs, pattern).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count card search: %w", err)
	}

	rows, err := p.db.Query(fmt.Sprintf(`
		SELECT id, board_id, list_id, title, description
		FROM cards
		WHERE %s
		ORDER BY updated_at DESC
		LIMIT %d OFFSET %d
	`, where, limit, offset), q.BoardIDs, pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("card search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.BoardID, &r.ListID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scan card search: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate card search: %w", err)
	}
	return results, total, nil
}

// LoadAllRecords reads every card for reindexing into Meilisearch.
func (p *PgSearch) LoadAllRecords(ctx context.Context) ([]CardRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, board_id, list_id, title, description FROM cards`)
	if err != nil {
		return nil, fmt.Errorf("load card records: %w", err)
	}
	defer rows.Close()

	records := make([]CardRecord, 0)
	for rows.Next() {
		var record CardRecord
		if err := rows.Scan(&record.ID, &record.BoardID, &record.ListID, &record.Title, &record.Description); err != nil {
			return nil, fmt.Errorf("scan card record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card records: %w", err)
	}
	return records, nil
}
