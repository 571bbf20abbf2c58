package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no sermon exists under the requested id.
var ErrNotFound = errors.New("sermon not found")

// SermonRecord is one persisted sermon document. State is the serialized
// DocumentState blob; Fingerprint and SizeBytes are codec-derived and
// stored for change detection and storage budgeting.
type SermonRecord struct {
	ID          string
	Title       string
	Speaker     string
	Passage     string
	Tags        []string
	State       string
	Fingerprint string
	SizeBytes   int
	MediaKey    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SermonSummary is the listing projection, without the state blob.
type SermonSummary struct {
	ID          string
	Title       string
	Speaker     string
	Passage     string
	Tags        []string
	Fingerprint string
	SizeBytes   int
	UpdatedAt   time.Time
}

type SermonStore struct {
	db *sql.DB
}

func NewSermonStore(db *sql.DB) *SermonStore {
	return &SermonStore{db: db}
}

func (s *SermonStore) DB() *sql.DB {
	return s.db
}

// Save upserts the record keyed by document id.
func (s *SermonStore) Save(ctx context.Context, rec SermonRecord) error {
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sermons (id, title, speaker, passage, tags, state, fingerprint, size_bytes, media_key, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title=EXCLUDED.title,
			speaker=EXCLUDED.speaker,
			passage=EXCLUDED.passage,
			tags=EXCLUDED.tags,
			state=EXCLUDED.state,
			fingerprint=EXCLUDED.fingerprint,
			size_bytes=EXCLUDED.size_bytes,
			media_key=EXCLUDED.media_key,
			updated_at=NOW()
	`, rec.ID, rec.Title, rec.Speaker, rec.Passage, string(tags), rec.State, rec.Fingerprint, rec.SizeBytes, rec.MediaKey)
	if err != nil {
		return fmt.Errorf("save sermon %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads one record, state blob included.
func (s *SermonStore) Get(ctx context.Context, id string) (SermonRecord, error) {
	var rec SermonRecord
	var tags string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, speaker, passage, tags, state, fingerprint, size_bytes, media_key, created_at, updated_at
		FROM sermons WHERE id=$1
	`, id).Scan(&rec.ID, &rec.Title, &rec.Speaker, &rec.Passage, &tags, &rec.State,
		&rec.Fingerprint, &rec.SizeBytes, &rec.MediaKey, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SermonRecord{}, ErrNotFound
	}
	if err != nil {
		return SermonRecord{}, fmt.Errorf("get sermon %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return SermonRecord{}, fmt.Errorf("decode tags for %s: %w", id, err)
	}
	return rec, nil
}

// List returns summaries newest-first.
func (s *SermonStore) List(ctx context.Context) ([]SermonSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, speaker, passage, tags, fingerprint, size_bytes, updated_at
		FROM sermons
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sermons: %w", err)
	}
	defer rows.Close()

	items := make([]SermonSummary, 0)
	for rows.Next() {
		var item SermonSummary
		var tags string
		if err := rows.Scan(&item.ID, &item.Title, &item.Speaker, &item.Passage, &tags,
			&item.Fingerprint, &item.SizeBytes, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sermon: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &item.Tags); err != nil {
			return nil, fmt.Errorf("decode tags for %s: %w", item.ID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Delete removes the record. Deleting an absent id is not an error.
func (s *SermonStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sermons WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete sermon %s: %w", id, err)
	}
	return nil
}
