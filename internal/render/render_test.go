package render

import (
	"strings"
	"testing"

	"github.com/ziadkadry99/context-store/internal/storage"
)

func TestMarkdownWrapsCodeExamples(t *testing.T) {
	p := &storage.ContextPayload{
		Type:    storage.TypeCodeExample,
		Content: "fn transfer() {}",
		Metadata: storage.ContextMetadata{
			Title:    "Transfer",
			Language: "rust",
		},
	}
	md := Markdown(p)
	if !strings.Contains(md, "```rust\nfn transfer() {}\n```") {
		t.Errorf("expected fenced rust block, got:\n%s", md)
	}
	if !strings.HasPrefix(md, "# Transfer\n") {
		t.Errorf("expected title heading, got:\n%s", md)
	}
}

func TestMarkdownKeepsExistingFences(t *testing.T) {
	p := &storage.ContextPayload{
		Type:     storage.TypeCodeExample,
		Content:  "Intro\n\n```go\nfmt.Println()\n```",
		Metadata: storage.ContextMetadata{Title: "Go"},
	}
	if n := strings.Count(Markdown(p), "```"); n != 2 {
		t.Errorf("expected original fences only, got %d", n)
	}
}

func TestFragment(t *testing.T) {
	r := New()
	out, err := r.Fragment(&storage.ContextPayload{
		Type:    storage.TypeBestPractice,
		Content: "Always **check** the caller.\n\n<script>alert(1)</script>",
		Metadata: storage.ContextMetadata{
			Title:       "Access control",
			Description: "Guard endpoints",
		},
	})
	if err != nil {
		t.Fatalf("Fragment() error: %v", err)
	}
	html := string(out)

	for _, want := range []string{`<h1 id="access-control">Access control</h1>`, "<strong>check</strong>", "<em>Guard endpoints</em>"} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %q in:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("raw HTML should not be passed through")
	}
}

func TestPage(t *testing.T) {
	r := New()
	out, err := r.Page(&storage.ContextPayload{
		Type:    storage.TypeCodeExample,
		Content: "let x = 1;",
		Metadata: storage.ContextMetadata{
			Title:          "A <b> title",
			Tags:           []string{"token"},
			ContractType:   "token",
			RelevanceScore: 0.9,
			Language:       "rust",
		},
	})
	if err != nil {
		t.Fatalf("Page() error: %v", err)
	}
	html := string(out)

	if !strings.Contains(html, "<title>A &lt;b&gt; title</title>") {
		t.Error("title should be escaped")
	}
	if !strings.Contains(html, `<span class="context-tag">token</span>`) {
		t.Error("missing tag")
	}
	if !strings.Contains(html, "0.90") {
		t.Error("missing score")
	}
	if !strings.Contains(html, "<pre") {
		t.Error("expected highlighted code block")
	}
}
