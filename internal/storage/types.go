package storage

import "time"

// ContextType classifies a stored context record.
type ContextType string

const (
	TypeBestPractice   ContextType = "best_practice"
	TypeCodeExample    ContextType = "code_example"
	TypeErrorPattern   ContextType = "error_pattern"
	TypeDocumentation  ContextType = "documentation"
	TypeSecurityTip    ContextType = "security_tip"
	TypeOptimization   ContextType = "optimization"
	TypeDeploymentTool ContextType = "deployment_tool"
)

// ContextTypes lists every recognized context type in a stable order.
var ContextTypes = []ContextType{
	TypeBestPractice,
	TypeCodeExample,
	TypeErrorPattern,
	TypeDocumentation,
	TypeSecurityTip,
	TypeOptimization,
	TypeDeploymentTool,
}

// Valid reports whether t is one of the recognized context types.
func (t ContextType) Valid() bool {
	for _, known := range ContextTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ContextMetadata holds the descriptive and classification fields of a record.
type ContextMetadata struct {
	Title          string    `json:"title" yaml:"title" msgpack:"title"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty" msgpack:"description,omitempty"`
	Tags           []string  `json:"tags,omitempty" yaml:"tags,omitempty" msgpack:"tags,omitempty"`
	RelevanceScore float64   `json:"relevanceScore,omitempty" yaml:"relevanceScore,omitempty" msgpack:"relevanceScore,omitempty"`
	ContractType   string    `json:"contractType,omitempty" yaml:"contractType,omitempty" msgpack:"contractType,omitempty"`
	Language       string    `json:"language,omitempty" yaml:"language,omitempty" msgpack:"language,omitempty"`
	Author         string    `json:"author,omitempty" yaml:"author,omitempty" msgpack:"author,omitempty"`
	CreatedAt      time.Time `json:"createdAt" yaml:"createdAt,omitempty" msgpack:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"updatedAt,omitempty" msgpack:"updatedAt"`
}

// ContextPayload is a single stored knowledge unit.
type ContextPayload struct {
	ID                string          `json:"id" yaml:"id,omitempty" msgpack:"id"`
	Type              ContextType     `json:"type" yaml:"type" msgpack:"type"`
	Content           string          `json:"content" yaml:"content" msgpack:"content"`
	Metadata          ContextMetadata `json:"metadata" yaml:"metadata" msgpack:"metadata"`
	RelatedContextIDs []string        `json:"relatedContextIds,omitempty" yaml:"relatedContextIds,omitempty" msgpack:"relatedContextIds,omitempty"`
}

// Clone returns a deep copy of p.
func (p *ContextPayload) Clone() *ContextPayload {
	if p == nil {
		return nil
	}
	c := *p
	c.Metadata.Tags = cloneStrings(p.Metadata.Tags)
	c.RelatedContextIDs = cloneStrings(p.RelatedContextIDs)
	return &c
}

// MetadataPatch carries the metadata fields of a partial update. Nil pointers
// and nil slices leave the stored value untouched.
type MetadataPatch struct {
	Title          *string  `json:"title,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	RelevanceScore *float64 `json:"relevanceScore,omitempty"`
	ContractType   *string  `json:"contractType,omitempty"`
	Language       *string  `json:"language,omitempty"`
	Author         *string  `json:"author,omitempty"`
}

// ContextPatch is a partial update of a ContextPayload.
type ContextPatch struct {
	Type              *ContextType   `json:"type,omitempty"`
	Content           *string        `json:"content,omitempty"`
	Metadata          *MetadataPatch `json:"metadata,omitempty"`
	RelatedContextIDs []string       `json:"relatedContextIds,omitempty"`
}

// Apply returns a copy of p with the patch merged in and UpdatedAt set to now.
// CreatedAt and ID are never touched.
func (patch ContextPatch) Apply(p *ContextPayload, now time.Time) *ContextPayload {
	out := p.Clone()
	if patch.Type != nil {
		out.Type = *patch.Type
	}
	if patch.Content != nil {
		out.Content = *patch.Content
	}
	if patch.RelatedContextIDs != nil {
		out.RelatedContextIDs = cloneStrings(patch.RelatedContextIDs)
	}
	if m := patch.Metadata; m != nil {
		if m.Title != nil {
			out.Metadata.Title = *m.Title
		}
		if m.Description != nil {
			out.Metadata.Description = *m.Description
		}
		if m.Tags != nil {
			out.Metadata.Tags = cloneStrings(m.Tags)
		}
		if m.RelevanceScore != nil {
			out.Metadata.RelevanceScore = *m.RelevanceScore
		}
		if m.ContractType != nil {
			out.Metadata.ContractType = *m.ContractType
		}
		if m.Language != nil {
			out.Metadata.Language = *m.Language
		}
		if m.Author != nil {
			out.Metadata.Author = *m.Author
		}
	}
	if now.Before(out.Metadata.CreatedAt) {
		now = out.Metadata.CreatedAt
	}
	out.Metadata.UpdatedAt = now
	return out
}

// QueryParams filters a query. Zero values mean "no filter".
type QueryParams struct {
	Types        []ContextType `json:"types,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	ContractType string        `json:"contractType,omitempty"`
	Query        string        `json:"query,omitempty"`
	Limit        int           `json:"limit,omitempty"`
	Offset       int           `json:"offset,omitempty"`
}

// QueryResult is one page of a query plus the size of the full filtered set.
type QueryResult struct {
	Results []ContextPayload `json:"results"`
	Total   int              `json:"total"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
