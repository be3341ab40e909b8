package storage

import (
	"sort"
	"strings"
)

// DefaultLimit is the page size used when QueryParams.Limit is not set.
const DefaultLimit = 10

// Seed describes which secondary index seeds the candidate set of a query.
// When Family is empty the master index is used.
type Seed struct {
	Family IndexFamily
	Values []string
}

// SeedFor picks the candidate index for params. Precedence is
// types > tags > contractType > master.
func SeedFor(params QueryParams) Seed {
	switch {
	case len(params.Types) > 0:
		values := make([]string, 0, len(params.Types))
		for _, t := range params.Types {
			values = append(values, string(t))
		}
		return Seed{Family: FamilyType, Values: values}
	case len(params.Tags) > 0:
		return Seed{Family: FamilyTag, Values: cloneStrings(params.Tags)}
	case params.ContractType != "":
		return Seed{Family: FamilyContract, Values: []string{params.ContractType}}
	default:
		return Seed{}
	}
}

// Matches reports whether p satisfies every filter in params, including the
// one used to seed the candidate set.
func Matches(p *ContextPayload, params QueryParams) bool {
	if len(params.Types) > 0 && !containsType(params.Types, p.Type) {
		return false
	}
	if len(params.Tags) > 0 && !anyTag(p.Metadata.Tags, params.Tags) {
		return false
	}
	if params.ContractType != "" && p.Metadata.ContractType != params.ContractType {
		return false
	}
	if q := strings.TrimSpace(params.Query); q != "" && !matchesText(p, q) {
		return false
	}
	return true
}

// matchesText requires every whitespace-separated token of q to occur as a
// case-insensitive substring of the record's searchable text.
func matchesText(p *ContextPayload, q string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		p.Content,
		p.Metadata.Title,
		p.Metadata.Description,
		strings.Join(p.Metadata.Tags, " "),
	}, " "))
	for _, token := range strings.Fields(strings.ToLower(q)) {
		if !strings.Contains(haystack, token) {
			return false
		}
	}
	return true
}

// Paginate filters candidates with params, orders them by relevance score
// descending (ties by id) and returns the requested page. Total is the size
// of the filtered set before pagination.
func Paginate(candidates []*ContextPayload, params QueryParams) *QueryResult {
	params = normalizePage(params)

	matched := Filter(candidates, params)

	res := &QueryResult{
		Results: []ContextPayload{},
		Total:   len(matched),
		Offset:  params.Offset,
		Limit:   params.Limit,
	}
	if params.Offset >= len(matched) {
		return res
	}
	end := len(matched)
	if params.Limit < end-params.Offset {
		end = params.Offset + params.Limit
	}
	for _, p := range matched[params.Offset:end] {
		res.Results = append(res.Results, *p.Clone())
	}
	return res
}

// Filter returns the candidates matching params in result order.
func Filter(candidates []*ContextPayload, params QueryParams) []*ContextPayload {
	matched := make([]*ContextPayload, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, p := range candidates {
		if p == nil || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		if Matches(p, params) {
			matched = append(matched, p)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].Metadata.RelevanceScore, matched[j].Metadata.RelevanceScore
		if a != b {
			return a > b
		}
		return matched[i].ID < matched[j].ID
	})
	return matched
}

func normalizePage(params QueryParams) QueryParams {
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	return params
}

func containsType(types []ContextType, t ContextType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func anyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
