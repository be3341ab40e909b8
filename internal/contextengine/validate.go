package contextengine

import (
	"fmt"
	"strings"

	"github.com/ziadkadry99/context-store/internal/storage"
)

func validatePayload(p *storage.ContextPayload) error {
	if p == nil {
		return &storage.ValidationError{Reason: "payload is required"}
	}
	if !p.Type.Valid() {
		return invalidType(p.Type)
	}
	if strings.TrimSpace(p.Metadata.Title) == "" {
		return &storage.ValidationError{Field: "metadata.title", Reason: "must not be empty"}
	}
	if p.Metadata.RelevanceScore < 0 {
		return &storage.ValidationError{Field: "metadata.relevanceScore", Reason: "must not be negative"}
	}
	return validateTags(p.Metadata.Tags)
}

func validatePatch(patch storage.ContextPatch) error {
	if patch.Type != nil && !patch.Type.Valid() {
		return invalidType(*patch.Type)
	}
	m := patch.Metadata
	if m == nil {
		return nil
	}
	if m.Title != nil && strings.TrimSpace(*m.Title) == "" {
		return &storage.ValidationError{Field: "metadata.title", Reason: "must not be empty"}
	}
	if m.RelevanceScore != nil && *m.RelevanceScore < 0 {
		return &storage.ValidationError{Field: "metadata.relevanceScore", Reason: "must not be negative"}
	}
	return validateTags(m.Tags)
}

func validateTags(tags []string) error {
	for i, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return &storage.ValidationError{Field: fmt.Sprintf("metadata.tags[%d]", i), Reason: "must not be empty"}
		}
	}
	return nil
}

func validateTypes(types []storage.ContextType) error {
	for _, t := range types {
		if !t.Valid() {
			return invalidType(t)
		}
	}
	return nil
}

func invalidType(t storage.ContextType) error {
	return &storage.ValidationError{
		Field:  "type",
		Reason: fmt.Sprintf("unknown context type %q", t),
	}
}
