package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var documentTemplate = template.Must(template.New("sermon").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"join": strings.Join,
}).Parse(sermonTemplate))

// TemplateData holds data for sermon template rendering.
type TemplateData struct {
	Title       string
	Speaker     string
	Passage     string
	Tags        []string
	ContentHTML template.HTML
	UpdatedAt   time.Time
	Quotes      []TemplateQuote
}

// TemplateQuote is one entry in the quote index appendix.
type TemplateQuote struct {
	Reference string
	Text      string
	Verified  bool
}

// RenderDocumentHTML renders the sermon template with provided data.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const sermonTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    blockquote { border-left: 3px solid #8a6d3b; margin: 1rem 0; padding: 0.5rem 1rem; background: #fdf8ee; }
    blockquote cite { display: block; margin-top: 0.5rem; color: #8a6d3b; font-style: normal; font-size: 0.9em; }
    em.interjection { color: #a94442; }
    .quote-index { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
    .unverified { color: #a94442; font-size: 0.85em; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">
    {{if .Speaker}}{{.Speaker}} | {{end}}{{if .Passage}}{{.Passage}} | {{end}}{{formatDate .UpdatedAt "Jan 2, 2006"}}
    {{if .Tags}}<br>{{join .Tags ", "}}{{end}}
  </div>
  <div>{{.ContentHTML}}</div>
  {{if .Quotes}}
  <h2>Scripture Index</h2>
  {{range .Quotes}}<div class="quote-index">
    <strong>{{.Reference}}</strong>
    {{if not .Verified}}<span class="unverified">unverified</span>{{end}}
    <p>{{.Text}}</p>
  </div>{{end}}
  {{end}}
</body>
</html>`
