// Package importers loads context records from corpus files on disk.
//
// A YAML or JSON corpus file holds a single record, a list of records, or a
// mapping with a "contexts" list. Markdown files become one record each,
// with metadata taken from an optional YAML front matter block.
package importers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/context-store/internal/storage"
)

// Extensions lists the file extensions LoadFile understands.
var Extensions = []string{".yml", ".yaml", ".json", ".md"}

// Supported reports whether path has a corpus file extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile reads the records stored in one corpus file.
func LoadFile(path string) ([]storage.ContextPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var records []storage.ContextPayload
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		records, err = decodeYAML(data)
	case ".md":
		var p *storage.ContextPayload
		if p, err = ParseMarkdown(data, path); err == nil {
			records = []storage.ContextPayload{*p}
		}
	default:
		records, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return records, nil
}

type corpus struct {
	Contexts []storage.ContextPayload `json:"contexts" yaml:"contexts"`
}

func decodeYAML(data []byte) ([]storage.ContextPayload, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]

	switch root.Kind {
	case yaml.SequenceNode:
		var list []storage.ContextPayload
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return list, nil
	case yaml.MappingNode:
		if hasKey(root, "contexts") {
			var c corpus
			if err := root.Decode(&c); err != nil {
				return nil, err
			}
			return c.Contexts, nil
		}
		var p storage.ContextPayload
		if err := root.Decode(&p); err != nil {
			return nil, err
		}
		return []storage.ContextPayload{p}, nil
	default:
		return nil, fmt.Errorf("expected a record, a list of records or a contexts mapping")
	}
}

func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}

func decodeJSON(data []byte) ([]storage.ContextPayload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var list []storage.ContextPayload
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, err
	}
	if _, ok := probe["contexts"]; ok {
		var c corpus
		if err := json.Unmarshal(trimmed, &c); err != nil {
			return nil, err
		}
		return c.Contexts, nil
	}
	var p storage.ContextPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, err
	}
	return []storage.ContextPayload{p}, nil
}

// Expand resolves doublestar patterns (e.g. "corpus/**/*.yml") to a sorted,
// de-duplicated list of supported files. A pattern naming a directory
// expands to every supported file beneath it.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !seen[path] && Supported(path) {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			pattern = filepath.Join(pattern, "**", "*")
		}
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				add(m)
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// Item is one loaded record together with where it came from.
type Item struct {
	Source  string
	Payload storage.ContextPayload
}

// LoadAll loads every file in order. Files that fail to parse are reported
// in errs and skipped.
func LoadAll(files []string) (items []Item, errs []error) {
	for _, f := range files {
		records, err := LoadFile(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, r := range records {
			items = append(items, Item{Source: f, Payload: r})
		}
	}
	return items, errs
}
