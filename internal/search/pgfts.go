package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a
// fallback, and owns the quotes side table the fallback reads from.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true — if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across sermons and quotes using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
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

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultSermon {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'sermon'::text AS type, s.id, s.title,
				ts_headline('english', coalesce(s.passage, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				s.id AS sermon_id,
				''::text AS book, ''::text AS reference,
				ts_rank(s.fts, %s) AS rank
			FROM sermons s
			WHERE s.fts @@ %s`, tsQuery, tsQuery, tsQuery))
	}

	if q.FilterType == "" || q.FilterType == ResultQuote {
		quoteWhere := "q.fts @@ " + tsQuery
		if q.FilterSermonID != "" {
			quoteWhere += fmt.Sprintf(" AND q.sermon_id = $%d", argN)
			args = append(args, q.FilterSermonID)
			argN++
		}
		if q.FilterBook != "" {
			quoteWhere += fmt.Sprintf(" AND q.book = $%d", argN)
			args = append(args, q.FilterBook)
			argN++
		}
		if q.UnverifiedOnly {
			quoteWhere += " AND NOT q.verified"
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'quote'::text AS type, q.id, q.reference AS title,
				ts_headline('english', coalesce(q.text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				q.sermon_id,
				q.book, q.reference,
				ts_rank(q.fts, %s) AS rank
			FROM quotes q
			WHERE %s`, tsQuery, tsQuery, quoteWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, sermon_id, book, reference
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.SermonID, &r.Book, &r.Reference); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// ReplaceQuotes swaps the indexed quote rows of one sermon for the given
// set, inside a transaction so a reader never sees a half-replaced list.
func (p *PgFTS) ReplaceQuotes(ctx context.Context, sermonID string, quotes []QuoteRecord) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin quote reindex: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE sermon_id=$1`, sermonID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear quotes for %s: %w", sermonID, err)
	}
	for _, q := range quotes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO quotes (id, sermon_id, text, reference, book, translation, verified)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, q.ID, q.SermonID, q.Text, q.Reference, q.Book, q.Translation, q.Verified); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert quote %s: %w", q.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quote reindex: %w", err)
	}
	return nil
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]SermonRecord, []QuoteRecord, error) {
	sermonRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, speaker, passage
		FROM sermons
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load sermons: %w", err)
	}
	defer sermonRows.Close()

	sermons := make([]SermonRecord, 0)
	for sermonRows.Next() {
		var s SermonRecord
		if err := sermonRows.Scan(&s.ID, &s.Title, &s.Speaker, &s.Passage); err != nil {
			return nil, nil, fmt.Errorf("scan sermon: %w", err)
		}
		sermons = append(sermons, s)
	}
	if err := sermonRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate sermons: %w", err)
	}

	quoteRows, err := p.db.QueryContext(ctx, `
		SELECT id, sermon_id, text, reference, book, translation, verified
		FROM quotes
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load quotes: %w", err)
	}
	defer quoteRows.Close()

	quotes := make([]QuoteRecord, 0)
	for quoteRows.Next() {
		var q QuoteRecord
		if err := quoteRows.Scan(&q.ID, &q.SermonID, &q.Text, &q.Reference, &q.Book, &q.Translation, &q.Verified); err != nil {
			return nil, nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := quoteRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return sermons, quotes, nil
}
