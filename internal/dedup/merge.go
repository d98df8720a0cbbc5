package dedup

import (
	"cmp"
	"slices"

	"github.com/ppiankov/horizon/internal/model"
)

// Engine merges duplicate items using a fixed source precedence
type Engine struct {
	rank map[model.SourceType]int
}

// New creates an engine. Earlier entries in priority win primary selection;
// source types not listed rank after all listed ones.
func New(priority []model.SourceType) *Engine {
	rank := make(map[model.SourceType]int, len(priority))
	for i, t := range priority {
		if _, ok := rank[t]; !ok {
			rank[t] = i
		}
	}
	return &Engine{rank: rank}
}

// Merge groups items by dedup key and collapses every group of two or more
// into its primary record, which gains one provenance record per member.
// Output order follows the first occurrence of each key. Items that have no
// duplicate are returned unchanged.
func (e *Engine) Merge(items []*model.ContentItem) []*model.ContentItem {
	groups := make(map[string][]*model.ContentItem, len(items))
	var order []string

	for _, item := range items {
		if item == nil {
			continue
		}
		key := Key(item)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], item)
	}

	out := make([]*model.ContentItem, 0, len(order))
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			out = append(out, members[0])
			continue
		}
		out = append(out, e.mergeGroup(key, members))
	}

	return out
}

func (e *Engine) mergeGroup(key string, members []*model.ContentItem) *model.ContentItem {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, e.compare)

	primary := sorted[0]
	provenance := make([]model.ProvenanceRecord, 0, len(sorted))

	for _, m := range sorted {
		// Members merged earlier in the run keep their existing records
		if len(m.Provenance) > 0 {
			provenance = append(provenance, m.Provenance...)
			continue
		}
		provenance = append(provenance, recordFor(key, m))
	}
	primary.Provenance = provenance

	if len(primary.Comments) == 0 {
		for _, m := range sorted[1:] {
			if len(m.Comments) > 0 {
				primary.Comments = slices.Clone(m.Comments)
				break
			}
		}
	}

	if primary.DiscussionURL == "" {
		for _, m := range sorted[1:] {
			if m.DiscussionURL != "" {
				primary.DiscussionURL = m.DiscussionURL
				break
			}
		}
	}

	return primary
}

func recordFor(key string, item *model.ContentItem) model.ProvenanceRecord {
	rec := model.ProvenanceRecord{
		SourceType: item.SourceType,
		SourceID:   item.SourceID,
		Metrics:    item.Metrics,
	}
	if item.URL != "" && item.URL != key {
		rec.OriginalURL = item.URL
	}
	return rec
}

// compare orders items by source priority, then longer body, then source
// identifier, native ID and URL so that primary selection never depends on
// input order.
func (e *Engine) compare(a, b *model.ContentItem) int {
	if c := cmp.Compare(e.priority(a.SourceType), e.priority(b.SourceType)); c != 0 {
		return c
	}
	if c := cmp.Compare(len(b.Body), len(a.Body)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SourceID, b.SourceID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	return cmp.Compare(a.URL, b.URL)
}

func (e *Engine) priority(t model.SourceType) int {
	if r, ok := e.rank[t]; ok {
		return r
	}
	return len(e.rank)
}
