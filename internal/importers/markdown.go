package importers

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/context-store/internal/storage"
)

var headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// Section is one heading of a Markdown document and the text under it.
type Section struct {
	Heading string
	Level   int
	Content string
}

// ParseSections splits Markdown content at its headings. Text before the
// first heading is dropped.
func ParseSections(content string) []Section {
	lines := strings.Split(content, "\n")
	var sections []Section
	var current *Section
	inFence := false

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if m := headingRegex.FindStringSubmatch(line); m != nil && !inFence {
			// Save previous section.
			if current != nil {
				current.Content = strings.TrimSpace(current.Content)
				sections = append(sections, *current)
			}
			current = &Section{
				Heading: strings.TrimSpace(m[2]),
				Level:   len(m[1]),
			}
		} else if current != nil {
			current.Content += line + "\n"
		}
	}

	// Save last section.
	if current != nil {
		current.Content = strings.TrimSpace(current.Content)
		sections = append(sections, *current)
	}

	return sections
}

// ExtractDescription returns the first paragraph of a "Description",
// "About", "Overview" or "Summary" section, falling back to the first
// paragraph under the first heading.
func ExtractDescription(content string) string {
	sections := ParseSections(content)
	if len(sections) == 0 {
		return firstParagraph(content)
	}

	for _, s := range sections {
		switch strings.ToLower(s.Heading) {
		case "description", "about", "overview", "summary":
			return firstParagraph(s.Content)
		}
	}

	for _, s := range sections {
		if s.Content != "" {
			return firstParagraph(s.Content)
		}
	}
	return ""
}

func firstParagraph(s string) string {
	paragraphs := strings.SplitN(strings.TrimSpace(s), "\n\n", 2)
	p := strings.TrimSpace(paragraphs[0])
	if strings.HasPrefix(p, "```") {
		return ""
	}
	return p
}

// frontMatter is the optional YAML header of a Markdown context file.
type frontMatter struct {
	ID                string              `yaml:"id"`
	Type              storage.ContextType `yaml:"type"`
	Title             string              `yaml:"title"`
	Description       string              `yaml:"description"`
	Tags              []string            `yaml:"tags"`
	RelevanceScore    float64             `yaml:"relevanceScore"`
	ContractType      string              `yaml:"contractType"`
	Language          string              `yaml:"language"`
	Author            string              `yaml:"author"`
	RelatedContextIDs []string            `yaml:"relatedContextIds"`
}

// ParseMarkdown turns a Markdown file into a record. The optional front
// matter sets metadata; the title falls back to the first heading and then
// the file name, and the type defaults to documentation.
func ParseMarkdown(content []byte, path string) (*storage.ContextPayload, error) {
	var fm frontMatter
	body := content
	if header, rest, ok := splitFrontMatter(content); ok {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return nil, fmt.Errorf("parsing front matter: %w", err)
		}
		body = rest
	}
	text := strings.TrimSpace(string(body))

	title := fm.Title
	if title == "" {
		if sections := ParseSections(text); len(sections) > 0 {
			title = sections[0].Heading
		}
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	description := fm.Description
	if description == "" {
		description = ExtractDescription(text)
	}

	typ := fm.Type
	if typ == "" {
		typ = storage.TypeDocumentation
	}

	return &storage.ContextPayload{
		ID:      fm.ID,
		Type:    typ,
		Content: text,
		Metadata: storage.ContextMetadata{
			Title:          title,
			Description:    description,
			Tags:           fm.Tags,
			RelevanceScore: fm.RelevanceScore,
			ContractType:   fm.ContractType,
			Language:       fm.Language,
			Author:         fm.Author,
		},
		RelatedContextIDs: fm.RelatedContextIDs,
	}, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block.
func splitFrontMatter(content []byte) (header, body []byte, ok bool) {
	const delim = "---"
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte(delim+"\n")) {
		return nil, content, false
	}
	rest := normalized[len(delim)+1:]
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return nil, content, false
	}
	header = rest[:end]
	body = rest[end+len(delim)+1:]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return header, body, true
}
