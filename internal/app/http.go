package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sermonscribe/api/internal/export"
	"sermonscribe/api/internal/search"
	"sermonscribe/api/internal/storage"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/verse" {
		reference := strings.TrimSpace(r.URL.Query().Get("ref"))
		if reference == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "ref is required", nil)
			return
		}
		result, err := s.service.LookupVerse(r.Context(), reference)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"found":               result.Found,
			"verseText":           result.VerseText,
			"normalizedReference": result.NormalizedReference,
			"translation":         result.Translation,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/sermons" {
		items, err := s.service.ListSermons(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(items))
		for _, item := range items {
			payload = append(payload, summaryJSON(item))
		}
		writeJSON(w, http.StatusOK, map[string]any{"sermons": payload})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/sermons" {
		var body CreateSermonInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		rec, err := s.service.CreateSermon(r.Context(), body)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordJSON(rec))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/sermons/import-transcript" {
		var body TranscriptImportInput
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		rec, err := s.service.ImportTranscript(r.Context(), body)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordJSON(rec))
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "sermons" {
		s.handleSermon(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSermon(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			rec, err := s.service.GetSermon(ctx, id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, recordJSON(rec))
		case http.MethodDelete:
			if err := s.service.DeleteSermon(ctx, id); err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch rest[0] {
	case "document":
		switch r.Method {
		case http.MethodGet:
			view, err := s.service.Document(ctx, id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, view)
		case http.MethodPut:
			raw, err := io.ReadAll(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read body", nil)
				return
			}
			view, err := s.service.UpdateDocument(ctx, id, raw)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, view)
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return

	case "save":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		saveState, err := s.service.SaveSermon(ctx, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"saveState": saveState})
		return

	case "undo", "redo":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var view DocumentView
		var err error
		if rest[0] == "undo" {
			view, err = s.service.Undo(ctx, id)
		} else {
			view, err = s.service.Redo(ctx, id)
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return

	case "quotes":
		s.handleQuotes(w, r, id, rest[1:])
		return

	case "merge":
		s.handleMerge(w, r, id, rest[1:])
		return

	case "export":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		format := export.Format(r.URL.Query().Get("format"))
		if format == "" {
			format = export.FormatHTML
		}
		includeQuotes := r.URL.Query().Get("quotes") == "1"
		result, err := s.service.ExportSermon(ctx, id, format, includeQuotes)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return

	case "history":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		commits, err := s.service.SermonHistory(ctx, id, limit)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(commits))
		for _, c := range commits {
			payload = append(payload, map[string]any{
				"hash":      c.Hash,
				"message":   c.Message,
				"author":    c.Author,
				"createdAt": c.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"commits": payload})
		return

	case "versions":
		switch r.Method {
		case http.MethodGet:
			versions, err := s.service.SermonVersions(ctx, id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(versions))
			for _, v := range versions {
				payload = append(payload, map[string]any{"name": v.Name, "hash": v.Hash})
			}
			writeJSON(w, http.StatusOK, map[string]any{"versions": payload})
		case http.MethodPost:
			var body struct {
				Hash string `json:"hash"`
				Name string `json:"name"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.TagSermonVersion(ctx, id, body.Hash, body.Name); err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return

	case "restore":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		var body struct {
			Hash string `json:"hash"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Hash) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "hash is required", nil)
			return
		}
		view, err := s.service.RestoreVersion(ctx, id, body.Hash)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return

	case "recording":
		s.handleRecording(w, r, id, rest[1:])
		return

	case "transcribe":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		view, err := s.service.TranscribeRecording(ctx, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleQuotes(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			quotes, err := s.service.Quotes(ctx, id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			payload := make([]map[string]any, 0, len(quotes))
			for _, q := range quotes {
				item := map[string]any{
					"id":            q.ID,
					"text":          q.Text,
					"isNonBiblical": q.IsNonBiblical,
					"isReviewed":    q.IsReviewed,
					"interjections": q.Interjections,
					"startOffset":   q.StartOffset,
					"endOffset":     q.EndOffset,
					"paragraphId":   q.ParagraphID,
				}
				if q.Reference != nil {
					item["reference"] = q.Reference.NormalizedReference
					item["book"] = q.Reference.Book
				}
				payload = append(payload, item)
			}
			writeJSON(w, http.StatusOK, map[string]any{"quotes": payload})
		case http.MethodPost:
			var body CreateQuoteInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			quoteID, err := s.service.CreateQuote(ctx, id, body)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"quoteId": quoteID})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	quoteID := rest[0]
	action := ""
	if len(rest) > 1 {
		action = rest[1]
	}

	switch {
	case action == "" && r.Method == http.MethodDelete:
		if err := s.service.RemoveQuote(ctx, id, quoteID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case action == "verify" && r.Method == http.MethodPost:
		var body struct {
			Verified bool `json:"verified"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.VerifyQuote(ctx, id, quoteID, body.Verified); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case action == "reference" && r.Method == http.MethodPut:
		var body struct {
			Reference string `json:"reference"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.SetQuoteReference(ctx, id, quoteID, body.Reference)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"found":               result.Found,
			"verseText":           result.VerseText,
			"normalizedReference": result.NormalizedReference,
		})

	case action == "non-biblical" && r.Method == http.MethodPost:
		var body struct {
			NonBiblical bool `json:"nonBiblical"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.SetQuoteNonBiblical(ctx, id, quoteID, body.NonBiblical); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case action == "interjections" && r.Method == http.MethodGet:
		candidates, err := s.service.InterjectionCandidates(ctx, id, quoteID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(candidates))
		for i, c := range candidates {
			payload = append(payload, map[string]any{
				"index":       i,
				"text":        c.Text,
				"startOffset": c.StartOffset,
				"endOffset":   c.EndOffset,
				"confidence":  c.Confidence,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"candidates": payload})

	case action == "interjections" && r.Method == http.MethodPost:
		var body struct {
			Index   int    `json:"index"`
			Outcome string `json:"outcome"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var err error
		switch body.Outcome {
		case "confirm":
			err = s.service.ConfirmInterjection(ctx, id, body.Index)
		case "reject":
			err = s.service.RejectInterjection(ctx, id, body.Index)
		case "done":
			err = s.service.EndInterjectionEdit(ctx, id)
		default:
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "outcome must be confirm, reject, or done", nil)
			return
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleMerge(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 && r.Method == http.MethodGet {
		pending, err := s.service.PendingMerge(ctx, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if pending == nil {
			writeJSON(w, http.StatusOK, map[string]any{"pending": false})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"pending":      true,
			"paragraphIds": pending.ParagraphIDs,
			"mergedText":   pending.MergedText,
		})
		return
	}

	if len(rest) == 1 && r.Method == http.MethodPost {
		switch rest[0] {
		case "confirm":
			survivor, err := s.service.ConfirmMerge(ctx, id)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "paragraphId": survivor})
			return
		case "cancel":
			if err := s.service.CancelMerge(ctx, id); err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleRecording(w http.ResponseWriter, r *http.Request, id string, rest []string) {
	ctx := r.Context()

	if len(rest) == 1 && rest[0] == "url" && r.Method == http.MethodGet {
		url, err := s.service.RecordingURL(ctx, id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"url": url})
		return
	}

	if len(rest) == 0 && r.Method == http.MethodPost {
		filename := strings.TrimSpace(r.URL.Query().Get("filename"))
		if filename == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "filename is required", nil)
			return
		}
		key, err := s.service.UploadRecording(ctx, id, filename, r.Body, r.ContentLength, r.Header.Get("Content-Type"))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"mediaKey": key})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := search.Query{
		Text:           strings.TrimSpace(query.Get("q")),
		FilterBook:     strings.TrimSpace(query.Get("book")),
		FilterSermonID: strings.TrimSpace(query.Get("sermonId")),
		UnverifiedOnly: query.Get("unverified") == "1",
	}
	switch query.Get("type") {
	case "sermon":
		q.FilterType = search.ResultSermon
	case "quote":
		q.FilterType = search.ResultQuote
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	if raw := query.Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			q.Offset = parsed
		}
	}
	writeJSON(w, http.StatusOK, s.service.SearchAll(r.Context(), q))
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func recordJSON(rec storage.SermonRecord) map[string]any {
	return map[string]any{
		"id":          rec.ID,
		"title":       rec.Title,
		"speaker":     rec.Speaker,
		"passage":     rec.Passage,
		"tags":        rec.Tags,
		"fingerprint": rec.Fingerprint,
		"sizeBytes":   rec.SizeBytes,
		"mediaKey":    rec.MediaKey,
		"createdAt":   rec.CreatedAt,
		"updatedAt":   rec.UpdatedAt,
	}
}

func summaryJSON(item storage.SermonSummary) map[string]any {
	return map[string]any{
		"id":          item.ID,
		"title":       item.Title,
		"speaker":     item.Speaker,
		"passage":     item.Passage,
		"tags":        item.Tags,
		"fingerprint": item.Fingerprint,
		"sizeBytes":   item.SizeBytes,
		"updatedAt":   item.UpdatedAt,
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, storage.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Sermon not found", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
		return http.StatusNotImplemented, "EXPORT_DEPENDENCY_MISSING", err.Error(), nil
	}
	if errors.Is(err, export.ErrContentUnavailable) {
		return http.StatusConflict, "CONTENT_UNAVAILABLE", "Document content unavailable", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
