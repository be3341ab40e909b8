package storage

import "sort"

// IndexFamily names one kind of secondary index.
type IndexFamily string

const (
	FamilyType     IndexFamily = "type"
	FamilyTag      IndexFamily = "tag"
	FamilyContract IndexFamily = "contract"
)

// IndexEntry is a single membership: the record belongs to the bucket
// Family/Value.
type IndexEntry struct {
	Family IndexFamily
	Value  string
}

// IndexDelta is the set of membership changes a mutation implies. Master is
// +1 when the id joins the master index, -1 when it leaves, 0 otherwise.
type IndexDelta struct {
	Add    []IndexEntry
	Remove []IndexEntry
	Master int
}

// Empty reports whether the delta changes nothing.
func (d IndexDelta) Empty() bool {
	return len(d.Add) == 0 && len(d.Remove) == 0 && d.Master == 0
}

// IndexEntries returns the memberships a record must have. Duplicate and
// empty tags collapse to a single entry.
func IndexEntries(p *ContextPayload) []IndexEntry {
	if p == nil {
		return nil
	}
	entries := []IndexEntry{{Family: FamilyType, Value: string(p.Type)}}
	seen := make(map[string]bool, len(p.Metadata.Tags))
	for _, tag := range p.Metadata.Tags {
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		entries = append(entries, IndexEntry{Family: FamilyTag, Value: tag})
	}
	if p.Metadata.ContractType != "" {
		entries = append(entries, IndexEntry{Family: FamilyContract, Value: p.Metadata.ContractType})
	}
	return entries
}

// ComputeIndexDelta diffs the memberships of old and new. A nil old means the
// record is being created; a nil new means it is being deleted.
func ComputeIndexDelta(old, new *ContextPayload) IndexDelta {
	before := entrySet(IndexEntries(old))
	after := entrySet(IndexEntries(new))

	var d IndexDelta
	for e := range after {
		if !before[e] {
			d.Add = append(d.Add, e)
		}
	}
	for e := range before {
		if !after[e] {
			d.Remove = append(d.Remove, e)
		}
	}
	switch {
	case old == nil && new != nil:
		d.Master = 1
	case old != nil && new == nil:
		d.Master = -1
	}
	sortEntries(d.Add)
	sortEntries(d.Remove)
	return d
}

func entrySet(entries []IndexEntry) map[IndexEntry]bool {
	set := make(map[IndexEntry]bool, len(entries))
	for _, e := range entries {
		set[e] = true
	}
	return set
}

func sortEntries(entries []IndexEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Family != entries[j].Family {
			return entries[i].Family < entries[j].Family
		}
		return entries[i].Value < entries[j].Value
	})
}
