package importers

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// --- Corpus Loader Tests ---

func TestLoadFileShapes(t *testing.T) {
	tests := []struct {
		file       string
		wantCount  int
		wantTitle  string
		wantType   storage.ContextType
		wantTags   []string
		wantScore  float64
		wantContra string
	}{
		{"single.yml", 1, "Token transfer endpoint", storage.TypeCodeExample, []string{"token", "transfer"}, 0.9, "token"},
		{"list.yml", 2, "Events", storage.TypeDocumentation, nil, 0, ""},
		{"wrapped.yaml", 3, "Validate inputs first", storage.TypeBestPractice, []string{"validation", "token"}, 0.8, ""},
		{"single.json", 1, "Views", storage.TypeDocumentation, []string{"views"}, 0, ""},
		{"list.json", 1, "Balance underflow", storage.TypeErrorPattern, []string{"token", "math"}, 0.7, "token"},
		{"owner_checks.md", 1, "Restrict privileged endpoints", storage.TypeSecurityTip, []string{"auth", "token"}, 0.85, "token"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			records, err := LoadFile(filepath.Join("testdata", tt.file))
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if len(records) != tt.wantCount {
				t.Fatalf("expected %d records, got %d", tt.wantCount, len(records))
			}
			first := records[0]
			if first.Metadata.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", first.Metadata.Title, tt.wantTitle)
			}
			if first.Type != tt.wantType {
				t.Errorf("type = %q, want %q", first.Type, tt.wantType)
			}
			if strings.Join(first.Metadata.Tags, ",") != strings.Join(tt.wantTags, ",") {
				t.Errorf("tags = %v, want %v", first.Metadata.Tags, tt.wantTags)
			}
			if first.Metadata.RelevanceScore != tt.wantScore {
				t.Errorf("relevance = %v, want %v", first.Metadata.RelevanceScore, tt.wantScore)
			}
			if first.Metadata.ContractType != tt.wantContra {
				t.Errorf("contract type = %q, want %q", first.Metadata.ContractType, tt.wantContra)
			}
		})
	}
}

func TestLoadFileKeepsCodeContent(t *testing.T) {
	records, err := LoadFile(filepath.Join("testdata", "single.yml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	content := records[0].Content
	if !strings.Contains(content, "fn transfer(&self, to: ManagedAddress, amount: BigUint)") {
		t.Errorf("content lost the function signature:\n%s", content)
	}
	if records[0].Metadata.Language != "rust" {
		t.Errorf("language = %q, want rust", records[0].Metadata.Language)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join("testdata", "broken.yml")); err == nil {
		t.Error("expected parse error for broken YAML")
	}
	if _, err := LoadFile(filepath.Join("testdata", "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExpand(t *testing.T) {
	files, err := Expand([]string{"testdata/*.yml", "testdata/**/*.json", "testdata/single.yml"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{
		filepath.Join("testdata", "broken.yml"),
		filepath.Join("testdata", "list.json"),
		filepath.Join("testdata", "list.yml"),
		filepath.Join("testdata", "single.json"),
		filepath.Join("testdata", "single.yml"),
	}
	if strings.Join(files, "|") != strings.Join(want, "|") {
		t.Errorf("Expand() = %v, want %v", files, want)
	}
}

func TestExpandDirectory(t *testing.T) {
	files, err := Expand([]string{"testdata"})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for _, f := range files {
		if strings.HasSuffix(f, ".txt") {
			t.Errorf("unsupported file %s should be skipped", f)
		}
	}
	if len(files) != 7 {
		t.Errorf("expected 7 supported files, got %d: %v", len(files), files)
	}
}

func TestLoadAllSkipsBrokenFiles(t *testing.T) {
	files := []string{
		filepath.Join("testdata", "broken.yml"),
		filepath.Join("testdata", "list.yml"),
		filepath.Join("testdata", "single.json"),
	}
	items, errs := LoadAll(files)
	if len(errs) != 1 {
		t.Errorf("expected 1 error, got %d", len(errs))
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Source != files[1] {
		t.Errorf("source = %q, want %q", items[0].Source, files[1])
	}
}

// --- Markdown Parser Tests ---

func TestParseSections(t *testing.T) {
	content := `# My Contract

This is a token contract.

## Usage

Call transfer.

` + "```" + `
# not a heading
` + "```" + `
`

	sections := ParseSections(content)
	if len(sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(sections))
	}
	if sections[0].Heading != "My Contract" || sections[0].Level != 1 {
		t.Errorf("unexpected first section: %+v", sections[0])
	}
	if sections[1].Heading != "Usage" || sections[1].Level != 2 {
		t.Errorf("unexpected second section: %+v", sections[1])
	}
	if !strings.Contains(sections[1].Content, "# not a heading") {
		t.Error("fenced code should stay inside the section")
	}
}

func TestExtractDescription(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"overview section", "# T\n\nIntro.\n\n## Overview\n\nThe real summary.\n\nMore.", "The real summary."},
		{"first paragraph", "# T\n\nFirst paragraph.\n\nSecond.", "First paragraph."},
		{"no headings", "Just text.\n\nMore text.", "Just text."},
		{"title only", "# T\n\n## Details\n\nBody.", "Body."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDescription(tt.content); got != tt.want {
				t.Errorf("ExtractDescription() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseMarkdownDefaults(t *testing.T) {
	p, err := ParseMarkdown([]byte("Plain notes without a heading."), "docs/gas-notes.md")
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if p.Type != storage.TypeDocumentation {
		t.Errorf("type = %q, want documentation", p.Type)
	}
	if p.Metadata.Title != "gas-notes" {
		t.Errorf("title = %q, want file name", p.Metadata.Title)
	}
	if p.Metadata.Description != "Plain notes without a heading." {
		t.Errorf("description = %q", p.Metadata.Description)
	}
}

func TestParseMarkdownFrontMatter(t *testing.T) {
	content := "---\r\ntitle: Explicit\r\ntype: best_practice\r\ndescription: Given\r\n---\r\n# Heading\r\n\r\nBody.\r\n"
	p, err := ParseMarkdown([]byte(content), "x.md")
	if err != nil {
		t.Fatalf("ParseMarkdown: %v", err)
	}
	if p.Metadata.Title != "Explicit" || p.Metadata.Description != "Given" {
		t.Errorf("front matter ignored: %+v", p.Metadata)
	}
	if !strings.HasPrefix(p.Content, "# Heading") {
		t.Errorf("front matter should be stripped from content, got %q", p.Content)
	}

	if _, err := ParseMarkdown([]byte("---\ntags: [unclosed\n---\nbody"), "bad.md"); err == nil {
		t.Error("expected front matter parse error")
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.yml": true, "a.YAML": true, "a.json": true, "a.md": true, "a.txt": false, "a": false,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
