// Package render turns a stored context record into an HTML page.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// Renderer converts record content, which is Markdown, to HTML.
type Renderer struct {
	md   goldmark.Markdown
	page *template.Template
}

// New creates a Renderer. Raw HTML embedded in stored content is not passed
// through.
func New() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Renderer{
		md:   md,
		page: template.Must(template.New("page").Parse(pageTemplate)),
	}
}

// Fragment renders only the record body.
func (r *Renderer) Fragment(p *storage.ContextPayload) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(Markdown(p)), &buf); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Page renders a standalone HTML document for the record.
func (r *Renderer) Page(p *storage.ContextPayload) ([]byte, error) {
	body, err := r.Fragment(p)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	err = r.page.Execute(&buf, pageData{
		Title:    p.Metadata.Title,
		Type:     string(p.Type),
		Contract: p.Metadata.ContractType,
		Tags:     p.Metadata.Tags,
		Score:    p.Metadata.RelevanceScore,
		Body:     template.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("executing page template: %w", err)
	}
	return buf.Bytes(), nil
}

// Markdown builds the Markdown source for a record. Code examples whose
// content carries no fence are wrapped in one tagged with the record's
// language so they get highlighted.
func Markdown(p *storage.ContextPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", p.Metadata.Title)
	if p.Metadata.Description != "" {
		fmt.Fprintf(&b, "_%s_\n\n", p.Metadata.Description)
	}
	content := strings.TrimSpace(p.Content)
	if p.Type == storage.TypeCodeExample && !strings.Contains(content, "```") {
		fmt.Fprintf(&b, "```%s\n%s\n```\n", p.Metadata.Language, content)
	} else {
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String()
}

type pageData struct {
	Title    string
	Type     string
	Contract string
	Tags     []string
	Score    float64
	Body     template.HTML
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
</head>
<body>
  <header class="context-meta">
    <span class="context-type">{{.Type}}</span>
    {{if .Contract}}<span class="context-contract">{{.Contract}}</span>{{end}}
    {{range .Tags}}<span class="context-tag">{{.}}</span>{{end}}
    <span class="context-score">{{printf "%.2f" .Score}}</span>
  </header>
  <main class="content">
{{.Body}}
  </main>
</body>
</html>
`
