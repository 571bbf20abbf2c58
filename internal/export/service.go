package export

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"sermonscribe/api/internal/document"
	"sermonscribe/api/internal/editor"
	"sermonscribe/api/internal/review"
)

// DataStore defines the data access the export service needs
type DataStore interface {
	GetSermon(ctx context.Context, id string) (SermonInfo, error)
	GetDocumentRoot(ctx context.Context, id string) (*document.RootNode, error)
}

// SermonInfo holds sermon metadata for export rendering
type SermonInfo struct {
	ID        string
	Title     string
	Speaker   string
	Passage   string
	Tags      []string
	UpdatedAt time.Time
}

// Service provides sermon export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetSermon(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get sermon: %w", err)
	}

	root, err := s.store.GetDocumentRoot(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document content: %w", err)
	}
	if root == nil {
		return nil, ErrContentUnavailable
	}

	data := TemplateData{
		Title:       info.Title,
		Speaker:     info.Speaker,
		Passage:     info.Passage,
		Tags:        info.Tags,
		ContentHTML: template.HTML(editor.RenderHTML(root)),
		UpdatedAt:   info.UpdatedAt,
	}

	if req.IncludeQuotes {
		for _, q := range review.ProjectQuotes(root) {
			tq := TemplateQuote{Text: q.Text, Verified: q.IsReviewed}
			if q.Reference != nil {
				tq.Reference = q.Reference.NormalizedReference
			} else if q.IsNonBiblical {
				tq.Reference = "Non-biblical"
			}
			data.Quotes = append(data.Quotes, tq)
		}
	}

	html, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(info.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, info.Title)
	case FormatDOCX:
		return exportDOCX(html, info.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
