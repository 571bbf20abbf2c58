// Package verse resolves validated scripture references to verse text.
// The Postgres verses table is the source; a Redis cache sits in front
// because lookup traffic is bursty while a user types references.
package verse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sermonscribe/api/internal/docctx"
	"sermonscribe/api/internal/review"
)

// DefaultTranslation is used when the caller does not pin one.
const DefaultTranslation = "KJV"

// Store reads verses from Postgres. Only syntactically valid references
// reach it; the parser gates everything upstream.
type Store struct {
	db          *sql.DB
	translation string
}

func NewStore(db *sql.DB, translation string) *Store {
	if translation == "" {
		translation = DefaultTranslation
	}
	return &Store{db: db, translation: translation}
}

// Lookup resolves a reference string. An unparseable reference is an
// error (callers must validate first); a parseable reference with no
// verse rows resolves to Found=false, not an error.
func (s *Store) Lookup(ctx context.Context, reference string) (docctx.LookupResult, error) {
	parsed := review.ParseReference(reference)
	if !parsed.Valid {
		return docctx.LookupResult{}, fmt.Errorf("lookup %q: not a valid reference", reference)
	}

	book := review.CanonicalBook(parsed.Book)
	verseEnd := parsed.VerseStart
	if parsed.VerseEnd != nil {
		verseEnd = *parsed.VerseEnd
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT text FROM verses
		WHERE translation=$1 AND book=$2 AND chapter=$3 AND verse BETWEEN $4 AND $5
		ORDER BY verse
	`, s.translation, book, parsed.Chapter, parsed.VerseStart, verseEnd)
	if err != nil {
		return docctx.LookupResult{}, fmt.Errorf("lookup %q: %w", reference, err)
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return docctx.LookupResult{}, fmt.Errorf("scan verse: %w", err)
		}
		parts = append(parts, text)
	}
	if err := rows.Err(); err != nil {
		return docctx.LookupResult{}, fmt.Errorf("iterate verses: %w", err)
	}
	if len(parts) == 0 {
		return docctx.LookupResult{}, nil
	}

	normalized := parsed.Normalized
	if book != parsed.Book {
		normalized = strings.Replace(normalized, parsed.Book, book, 1)
	}
	return docctx.LookupResult{
		Found:               true,
		VerseText:           strings.Join(parts, " "),
		NormalizedReference: normalized,
		Translation:         s.translation,
	}, nil
}

var _ docctx.VerseLookup = (*Store)(nil)
