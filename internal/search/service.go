package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to PG FTS.
type Service struct {
	meili *Meili
	pgfts *PgFTS
}

// NewService creates a search service. meili may be nil if Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS) *Service {
	return &Service{meili: meili, pgfts: pgfts}
}

// Search tries Meilisearch if healthy, otherwise falls back to PG FTS.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to pgfts: %v", err)
	}

	results, total, err := s.pgfts.Search(q)
	if err != nil {
		log.Printf("search: pgfts error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexSermon records a sermon and its quotes: the Postgres side table
// synchronously (it backs the fallback), Meilisearch fire-and-forget.
func (s *Service) IndexSermon(ctx context.Context, rec SermonRecord, quotes []QuoteRecord) error {
	if s.pgfts != nil {
		if err := s.pgfts.ReplaceQuotes(ctx, rec.ID, quotes); err != nil {
			return err
		}
	}
	if s.meili == nil || !s.meili.Healthy() {
		return nil
	}
	go func() {
		if err := s.meili.IndexSermon(rec); err != nil {
			log.Printf("search: index sermon %s: %v", rec.ID, err)
		}
		if err := s.meili.IndexQuotes(quotes); err != nil {
			log.Printf("search: index quotes for %s: %v", rec.ID, err)
		}
	}()
	return nil
}

// DeleteSermon removes a sermon and its quotes from the indexes.
func (s *Service) DeleteSermon(ctx context.Context, id string) {
	if s.pgfts != nil {
		if err := s.pgfts.ReplaceQuotes(ctx, id, nil); err != nil {
			log.Printf("search: clear quotes for %s: %v", id, err)
		}
	}
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteSermon(id); err != nil {
			log.Printf("search: delete sermon %s: %v", id, err)
		}
	}()
}

// ReindexAllFromPG pushes every searchable record from PostgreSQL into
// Meilisearch, used at bootstrap after a Meilisearch wipe.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.meili == nil || !s.meili.Healthy() || s.pgfts == nil {
		return
	}
	sermons, quotes, err := s.pgfts.LoadAllRecords(ctx)
	if err != nil {
		log.Printf("search: reindex load failed: %v", err)
		return
	}
	if err := s.meili.IndexSermons(sermons); err != nil {
		log.Printf("search: reindex sermons: %v", err)
	}
	if err := s.meili.IndexQuotes(quotes); err != nil {
		log.Printf("search: reindex quotes: %v", err)
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
