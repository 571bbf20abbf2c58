package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"sermonscribe/api/internal/archive"
	"sermonscribe/api/internal/docctx"
	"sermonscribe/api/internal/document"
	"sermonscribe/api/internal/editor"
	"sermonscribe/api/internal/export"
	"sermonscribe/api/internal/history"
	"sermonscribe/api/internal/media"
	"sermonscribe/api/internal/review"
	"sermonscribe/api/internal/search"
	"sermonscribe/api/internal/storage"
	"sermonscribe/api/internal/transcribe"
)

type sermonStore interface {
	Save(context.Context, storage.SermonRecord) error
	Get(context.Context, string) (storage.SermonRecord, error)
	List(context.Context) ([]storage.SermonSummary, error)
	Delete(context.Context, string) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexSermon(ctx context.Context, rec search.SermonRecord, quotes []search.QuoteRecord) error
	DeleteSermon(ctx context.Context, id string)
}

type archiveStore interface {
	EnsureSermonRepo(sermonID string, initial archive.Snapshot, author string) error
	CommitSnapshot(sermonID string, snap archive.Snapshot, author, message string) (archive.CommitInfo, error)
	History(sermonID string, limit int) ([]archive.CommitInfo, error)
	TagVersion(sermonID, hash, name string) error
	Versions(sermonID string) ([]archive.VersionInfo, error)
	SnapshotByHash(sermonID, hash string) (archive.Snapshot, error)
}

// session bundles the live editing surfaces of one open sermon.
type session struct {
	docCtx  *docctx.DocumentContext
	sync    *docctx.EditorSync
	overlay *docctx.QuoteOverlay
}

func (s *session) close() {
	s.overlay.Close()
	s.sync.Close()
	_ = s.docCtx.Close()
}

// Service is the application facade: it owns sermon persistence, the
// per-sermon document contexts, and the supporting search, verse,
// export, archive and media subsystems.
type Service struct {
	store    sermonStore
	search   searchIndex
	verses   docctx.VerseLookup
	archive  archiveStore
	media    *media.Store       // nil disables recording endpoints
	stt      transcribe.Backend // nil disables server-side transcription
	exporter *export.Service
	db       *sql.DB

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(store sermonStore, searchIdx searchIndex, verses docctx.VerseLookup, arch archiveStore, mediaStore *media.Store, stt transcribe.Backend, db *sql.DB) *Service {
	s := &Service{
		store:    store,
		search:   searchIdx,
		verses:   verses,
		archive:  arch,
		media:    mediaStore,
		stt:      stt,
		db:       db,
		sessions: make(map[string]*session),
	}
	s.exporter = export.NewService(&exportStore{service: s})
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

// Close flushes and releases every open sermon session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()
	for _, sess := range sessions {
		sess.close()
	}
}

type CreateSermonInput struct {
	Title   string   `json:"title"`
	Speaker string   `json:"speaker"`
	Passage string   `json:"passage"`
	Tags    []string `json:"tags"`
}

// CreateSermon makes a new empty sermon document and registers it with
// the archive and the search index.
func (s *Service) CreateSermon(ctx context.Context, input CreateSermonInput) (storage.SermonRecord, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return storage.SermonRecord{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	root := &document.RootNode{
		ID:       document.NewRootID(),
		Title:    title,
		Children: []*document.Node{document.NewParagraph(document.NewText(""))},
	}
	return s.createFromRoot(ctx, root, input)
}

type TranscriptImportInput struct {
	Title    string               `json:"title"`
	Speaker  string               `json:"speaker"`
	Passage  string               `json:"passage"`
	Tags     []string             `json:"tags"`
	Segments []transcribe.Segment `json:"segments"`
	Language string               `json:"language"`
}

// ImportTranscript creates a sermon from pre-transcribed segments.
func (s *Service) ImportTranscript(ctx context.Context, input TranscriptImportInput) (storage.SermonRecord, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return storage.SermonRecord{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}
	root := transcribe.IngestTranscript(title, transcribe.Transcript{
		Language: input.Language,
		Segments: input.Segments,
	})
	return s.createFromRoot(ctx, root, CreateSermonInput{
		Title:   title,
		Speaker: input.Speaker,
		Passage: input.Passage,
		Tags:    input.Tags,
	})
}

func (s *Service) createFromRoot(ctx context.Context, root *document.RootNode, input CreateSermonInput) (storage.SermonRecord, error) {
	state := document.NewState(root)
	blob, err := history.CompactSerialize(state, history.SerializeOptions{IncludeEventLog: true, MaxEvents: document.MaxEventLog})
	if err != nil {
		return storage.SermonRecord{}, fmt.Errorf("serialize new sermon: %w", err)
	}
	fingerprint, err := history.Fingerprint(root)
	if err != nil {
		return storage.SermonRecord{}, fmt.Errorf("fingerprint new sermon: %w", err)
	}

	rec := storage.SermonRecord{
		ID:          root.ID,
		Title:       root.Title,
		Speaker:     strings.TrimSpace(input.Speaker),
		Passage:     strings.TrimSpace(input.Passage),
		Tags:        input.Tags,
		State:       blob,
		Fingerprint: fingerprint,
		SizeBytes:   history.EstimateStorageBytes(blob),
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return storage.SermonRecord{}, err
	}

	if err := s.archive.EnsureSermonRepo(rec.ID, snapshotFor(rec), authorFor(rec)); err != nil {
		log.Printf("app: archive init for %s failed: %v", rec.ID, err)
	}
	s.indexSermon(ctx, rec, root)

	saved, err := s.store.Get(ctx, rec.ID)
	if err != nil {
		return rec, nil
	}
	return saved, nil
}

// TranscribeRecording runs the speech-to-text backend over a sermon's
// stored recording and replaces the document with the result.
func (s *Service) TranscribeRecording(ctx context.Context, id string) (DocumentView, error) {
	if s.stt == nil {
		return DocumentView{}, domainError(http.StatusNotImplemented, "TRANSCRIBE_DISABLED", "Transcription backend is not configured", nil)
	}
	if s.media == nil {
		return DocumentView{}, domainError(http.StatusNotImplemented, "MEDIA_DISABLED", "Media storage is not configured", nil)
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	if rec.MediaKey == "" {
		return DocumentView{}, domainError(http.StatusConflict, "NO_RECORDING", "Sermon has no uploaded recording", nil)
	}

	mediaURL, err := s.media.PresignedURL(ctx, rec.MediaKey)
	if err != nil {
		return DocumentView{}, fmt.Errorf("presign recording: %w", err)
	}
	transcript, err := s.stt.Transcribe(ctx, mediaURL)
	if err != nil {
		return DocumentView{}, fmt.Errorf("transcribe recording: %w", err)
	}

	sess, err := s.session(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	root := transcribe.IngestTranscript(rec.Title, transcript)
	// Keep the existing document identity so the context accepts the swap.
	root.ID = id
	if err := sess.docCtx.UpdateDocumentState(root, docctx.SourceTranscript); err != nil {
		return DocumentView{}, err
	}
	sess.overlay.Refresh()
	if err := sess.docCtx.Save(); err != nil {
		return DocumentView{}, err
	}
	return s.documentView(sess)
}

func (s *Service) ListSermons(ctx context.Context) ([]storage.SermonSummary, error) {
	return s.store.List(ctx)
}

func (s *Service) GetSermon(ctx context.Context, id string) (storage.SermonRecord, error) {
	return s.store.Get(ctx, id)
}

// DeleteSermon removes the sermon everywhere: store, search index,
// media bucket, and any open session.
func (s *Service) DeleteSermon(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, open := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if open {
		sess.overlay.Close()
		sess.sync.Close()
		// Skip the final flush; the row is about to go away.
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.search.DeleteSermon(ctx, id)
	if s.media != nil {
		if err := s.media.DeleteRecordings(ctx, id); err != nil {
			log.Printf("app: delete recordings for %s: %v", id, err)
		}
	}
	return nil
}

// DocumentView is the editor-facing snapshot of an open sermon.
type DocumentView struct {
	Doc             editor.Node        `json:"doc"`
	EditVersion     int                `json:"editVersion"`
	ExternalVersion int                `json:"externalVersion"`
	CanUndo         bool               `json:"canUndo"`
	CanRedo         bool               `json:"canRedo"`
	SaveState       document.SaveState `json:"saveState"`
}

func (s *Service) Document(ctx context.Context, id string) (DocumentView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	return s.documentView(sess)
}

// UpdateDocument applies an editor tree pushed from the client.
func (s *Service) UpdateDocument(ctx context.Context, id string, raw []byte) (DocumentView, error) {
	if _, err := editor.ParseJSON(raw); err != nil {
		return DocumentView{}, domainError(http.StatusUnprocessableEntity, "INVALID_DOCUMENT", err.Error(), nil)
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	sess.sync.Push(raw)
	sess.sync.Flush()
	sess.overlay.Refresh()
	return s.documentView(sess)
}

func (s *Service) SaveSermon(ctx context.Context, id string) (document.SaveState, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return "", err
	}
	if err := sess.docCtx.Save(); err != nil {
		return sess.docCtx.SaveState(), err
	}
	return sess.docCtx.SaveState(), nil
}

func (s *Service) Undo(ctx context.Context, id string) (DocumentView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	sess.docCtx.Undo()
	sess.overlay.Refresh()
	return s.documentView(sess)
}

func (s *Service) Redo(ctx context.Context, id string) (DocumentView, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	sess.docCtx.Redo()
	sess.overlay.Refresh()
	return s.documentView(sess)
}

func (s *Service) Quotes(ctx context.Context, id string) ([]review.QuoteReviewItem, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	return sess.docCtx.Quotes(), nil
}

func (s *Service) VerifyQuote(ctx context.Context, id, quoteID string, verified bool) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	return sess.overlay.Verify(quoteID, verified)
}

// SetQuoteReference validates the reference, resolves verse text when a
// lookup backend is configured, and writes both to the quote.
func (s *Service) SetQuoteReference(ctx context.Context, id, quoteID, input string) (docctx.LookupResult, error) {
	parsed := review.ParseReference(input)
	if !parsed.Valid {
		return docctx.LookupResult{}, domainError(http.StatusUnprocessableEntity, "INVALID_REFERENCE", fmt.Sprintf("%q is not a recognized scripture reference", input), nil)
	}

	var result docctx.LookupResult
	if s.verses != nil {
		looked, err := s.verses.Lookup(ctx, input)
		if err != nil {
			log.Printf("app: verse lookup %q failed: %v", input, err)
		} else {
			result = looked
		}
	}

	sess, err := s.session(ctx, id)
	if err != nil {
		return docctx.LookupResult{}, err
	}
	if _, err := sess.overlay.SetReference(quoteID, input, result.VerseText, result.Translation); err != nil {
		return docctx.LookupResult{}, err
	}
	return result, nil
}

func (s *Service) SetQuoteNonBiblical(ctx context.Context, id, quoteID string, nonBiblical bool) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	return sess.overlay.SetNonBiblical(quoteID, nonBiblical)
}

func (s *Service) RemoveQuote(ctx context.Context, id, quoteID string) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	return sess.overlay.Remove(quoteID)
}

type CreateQuoteInput struct {
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
	Reference   string `json:"reference"`
}

// CreateQuote promotes a plain-text selection into a quote block.
func (s *Service) CreateQuote(ctx context.Context, id string, input CreateQuoteInput) (string, error) {
	if input.EndOffset <= input.StartOffset {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "selection is empty", nil)
	}
	sess, err := s.session(ctx, id)
	if err != nil {
		return "", err
	}

	paragraphs := sess.docCtx.Paragraphs()
	plain := sess.docCtx.Root().PlainText()
	if input.StartOffset < 0 || input.EndOffset > len(plain) {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "selection is out of range", nil)
	}
	selected := plain[input.StartOffset:input.EndOffset]

	var covered []review.ParagraphSpan
	for _, p := range paragraphs {
		if p.EndOffset > input.StartOffset && p.StartOffset < input.EndOffset {
			covered = append(covered, p)
		}
	}
	if len(covered) == 0 {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "selection covers no paragraph", nil)
	}

	sess.overlay.BeginCreate(selected, covered, input.StartOffset, input.EndOffset)
	if strings.TrimSpace(input.Reference) != "" {
		sess.overlay.SetReferenceInput(input.Reference)
	}
	quoteID, err := sess.overlay.ConfirmCreate()
	if err != nil {
		return "", err
	}
	return quoteID, nil
}

// PendingMerge reports whether the last boundary or creation action
// left a cross-paragraph merge awaiting confirmation.
func (s *Service) PendingMerge(ctx context.Context, id string) (*review.MergePreview, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	state := sess.overlay.State()
	return state.PendingMerge, nil
}

func (s *Service) ConfirmMerge(ctx context.Context, id string) (string, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return "", err
	}
	survivor, err := sess.overlay.ConfirmMerge()
	if err != nil {
		return "", err
	}
	return survivor, nil
}

func (s *Service) CancelMerge(ctx context.Context, id string) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	sess.overlay.CancelMerge()
	return nil
}

// InterjectionCandidates enters interjection edit mode for a quote and
// returns the detected candidates above the confidence threshold.
func (s *Service) InterjectionCandidates(ctx context.Context, id, quoteID string) ([]review.Candidate, error) {
	sess, err := s.session(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.overlay.BeginInterjectionEdit(quoteID)
	state := sess.overlay.State()
	if state.InterjectionEdit == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Quote not found", nil)
	}
	return state.InterjectionEdit.Candidates, nil
}

func (s *Service) ConfirmInterjection(ctx context.Context, id string, index int) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	return sess.overlay.ConfirmInterjection(index)
}

func (s *Service) RejectInterjection(ctx context.Context, id string, index int) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	sess.overlay.RejectInterjection(index)
	return nil
}

func (s *Service) EndInterjectionEdit(ctx context.Context, id string) error {
	sess, err := s.session(ctx, id)
	if err != nil {
		return err
	}
	sess.overlay.EndInterjectionEdit()
	return nil
}

// ExportSermon renders the sermon in the requested format.
func (s *Service) ExportSermon(ctx context.Context, id string, format export.Format, includeQuotes bool) (*export.Result, error) {
	return s.exporter.Export(ctx, export.Request{
		DocumentID:    id,
		Format:        format,
		IncludeQuotes: includeQuotes,
	})
}

func (s *Service) SearchAll(_ context.Context, q search.Query) search.Response {
	return s.search.Search(q)
}

// LookupVerse resolves a reference to verse text for preview panes.
func (s *Service) LookupVerse(ctx context.Context, reference string) (docctx.LookupResult, error) {
	parsed := review.ParseReference(reference)
	if !parsed.Valid {
		return docctx.LookupResult{}, domainError(http.StatusUnprocessableEntity, "INVALID_REFERENCE", fmt.Sprintf("%q is not a recognized scripture reference", reference), nil)
	}
	if s.verses == nil {
		return docctx.LookupResult{Found: false, NormalizedReference: parsed.Normalized}, nil
	}
	return s.verses.Lookup(ctx, reference)
}

func (s *Service) SermonHistory(_ context.Context, id string, limit int) ([]archive.CommitInfo, error) {
	return s.archive.History(id, limit)
}

func (s *Service) SermonVersions(_ context.Context, id string) ([]archive.VersionInfo, error) {
	return s.archive.Versions(id)
}

func (s *Service) TagSermonVersion(_ context.Context, id, hash, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "version name is required", nil)
	}
	return s.archive.TagVersion(id, hash, name)
}

// RestoreVersion replaces the live document with an archived snapshot.
// The restore itself lands in the archive as a fresh commit, so nothing
// is ever lost.
func (s *Service) RestoreVersion(ctx context.Context, id, hash string) (DocumentView, error) {
	snap, err := s.archive.SnapshotByHash(id, hash)
	if err != nil {
		return DocumentView{}, domainError(http.StatusNotFound, "NOT_FOUND", "Archived version not found", nil)
	}
	state, err := history.CompactDeserialize(snap.Document)
	if err != nil {
		return DocumentView{}, fmt.Errorf("decode archived snapshot: %w", err)
	}

	sess, err := s.session(ctx, id)
	if err != nil {
		return DocumentView{}, err
	}
	root := state.Root.Clone()
	root.ID = id
	if err := sess.docCtx.UpdateDocumentState(root, docctx.SourceSystem); err != nil {
		return DocumentView{}, err
	}
	sess.overlay.Refresh()
	if err := sess.docCtx.Save(); err != nil {
		return DocumentView{}, err
	}
	return s.documentView(sess)
}

// UploadRecording stores a source recording and links it to the sermon.
func (s *Service) UploadRecording(ctx context.Context, id, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if s.media == nil {
		return "", domainError(http.StatusNotImplemented, "MEDIA_DISABLED", "Media storage is not configured", nil)
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	key, err := s.media.PutRecording(ctx, id, filename, r, size, contentType)
	if err != nil {
		return "", err
	}
	rec.MediaKey = key
	if err := s.store.Save(ctx, rec); err != nil {
		return "", err
	}
	return key, nil
}

// RecordingURL returns a time-limited playback URL for the sermon's
// recording.
func (s *Service) RecordingURL(ctx context.Context, id string) (string, error) {
	if s.media == nil {
		return "", domainError(http.StatusNotImplemented, "MEDIA_DISABLED", "Media storage is not configured", nil)
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if rec.MediaKey == "" {
		return "", domainError(http.StatusNotFound, "NO_RECORDING", "Sermon has no uploaded recording", nil)
	}
	return s.media.PresignedURL(ctx, rec.MediaKey)
}

// session returns the open session for a sermon, loading the persisted
// state on first access.
func (s *Service) session(ctx context.Context, id string) (*session, error) {
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		s.mu.Unlock()
		return sess, nil
	}
	s.mu.Unlock()

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := history.CompactDeserialize(rec.State)
	if err != nil {
		return nil, fmt.Errorf("decode sermon %s: %w", id, err)
	}

	docCtx := docctx.New(state, s.persistFunc())
	sess := &session{
		docCtx:  docCtx,
		sync:    docctx.NewEditorSync(docCtx),
		overlay: docctx.NewQuoteOverlay(docCtx, s.verses),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[id]; ok {
		// Another request raced us; keep theirs.
		sess.close()
		return existing, nil
	}
	s.sessions[id] = sess
	return sess, nil
}

// persistFunc bridges document-context saves into the sermon store, the
// archive, and the search index. Autosave calls it off-request, so it
// runs on a background context.
func (s *Service) persistFunc() docctx.PersistFunc {
	return func(docID, blob string) error {
		ctx := context.Background()
		rec, err := s.store.Get(ctx, docID)
		if err != nil {
			return err
		}

		state, err := history.CompactDeserialize(blob)
		if err != nil {
			return fmt.Errorf("decode blob for %s: %w", docID, err)
		}
		fingerprint, err := history.Fingerprint(state.Root)
		if err != nil {
			return fmt.Errorf("fingerprint %s: %w", docID, err)
		}

		rec.Title = state.Root.Title
		rec.State = blob
		rec.Fingerprint = fingerprint
		rec.SizeBytes = history.EstimateStorageBytes(blob)
		if err := s.store.Save(ctx, rec); err != nil {
			return err
		}

		if _, err := s.archive.CommitSnapshot(docID, snapshotFor(rec), authorFor(rec), "Autosave"); err != nil {
			log.Printf("app: archive commit for %s failed: %v", docID, err)
		}
		s.indexSermon(ctx, rec, state.Root)
		return nil
	}
}

func (s *Service) indexSermon(ctx context.Context, rec storage.SermonRecord, root *document.RootNode) {
	quotes := make([]search.QuoteRecord, 0)
	for _, q := range review.ProjectQuotes(root) {
		qr := search.QuoteRecord{
			ID:       q.ID,
			SermonID: rec.ID,
			Text:     q.Text,
			Verified: q.IsReviewed,
		}
		if q.Reference != nil {
			qr.Reference = q.Reference.NormalizedReference
			qr.Book = q.Reference.Book
		}
		quotes = append(quotes, qr)
	}
	if err := s.search.IndexSermon(ctx, search.SermonRecord{
		ID:      rec.ID,
		Title:   rec.Title,
		Speaker: rec.Speaker,
		Passage: rec.Passage,
		Tags:    rec.Tags,
	}, quotes); err != nil {
		log.Printf("app: index sermon %s failed: %v", rec.ID, err)
	}
}

func (s *Service) documentView(sess *session) (DocumentView, error) {
	doc, err := sess.sync.Render()
	if err != nil {
		return DocumentView{}, fmt.Errorf("render editor tree: %w", err)
	}
	return DocumentView{
		Doc:             doc,
		EditVersion:     sess.docCtx.EditVersion(),
		ExternalVersion: sess.docCtx.ExternalVersion(),
		CanUndo:         sess.docCtx.CanUndo(),
		CanRedo:         sess.docCtx.CanRedo(),
		SaveState:       sess.docCtx.SaveState(),
	}, nil
}

func snapshotFor(rec storage.SermonRecord) archive.Snapshot {
	return archive.Snapshot{
		Title:    rec.Title,
		Speaker:  rec.Speaker,
		Passage:  rec.Passage,
		Tags:     rec.Tags,
		Document: rec.State,
	}
}

func authorFor(rec storage.SermonRecord) string {
	if rec.Speaker != "" {
		return rec.Speaker
	}
	return "SermonScribe"
}

// exportStore adapts the service to the export package's data needs.
type exportStore struct {
	service *Service
}

func (e *exportStore) GetSermon(ctx context.Context, id string) (export.SermonInfo, error) {
	rec, err := e.service.store.Get(ctx, id)
	if err != nil {
		return export.SermonInfo{}, err
	}
	return export.SermonInfo{
		ID:        rec.ID,
		Title:     rec.Title,
		Speaker:   rec.Speaker,
		Passage:   rec.Passage,
		Tags:      rec.Tags,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (e *exportStore) GetDocumentRoot(ctx context.Context, id string) (*document.RootNode, error) {
	// Prefer the live session so unsaved edits export correctly.
	e.service.mu.Lock()
	sess, open := e.service.sessions[id]
	e.service.mu.Unlock()
	if open {
		return sess.docCtx.Root(), nil
	}

	rec, err := e.service.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	state, err := history.CompactDeserialize(rec.State)
	if err != nil {
		return nil, fmt.Errorf("decode sermon %s: %w", id, err)
	}
	return state.Root, nil
}

var _ export.DataStore = (*exportStore)(nil)
