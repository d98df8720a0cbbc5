// Package rank filters scored items by threshold and orders them for the report.
package rank

import (
	"slices"

	"github.com/ppiankov/horizon/internal/model"
)

// HighlightThreshold is the score from which an item is flagged for prominent display
const HighlightThreshold = 9.0

// Filter returns the scored items with a score of at least threshold, ordered
// by score descending. Ties keep their input order. Unscored items are
// never included.
func Filter(items []*model.ContentItem, threshold float64) []model.RankedItem {
	kept := make([]*model.ContentItem, 0, len(items))
	for _, item := range items {
		if item == nil || !item.Scored() {
			continue
		}
		if item.Score() >= threshold {
			kept = append(kept, item)
		}
	}

	slices.SortStableFunc(kept, func(a, b *model.ContentItem) int {
		switch {
		case a.Score() > b.Score():
			return -1
		case a.Score() < b.Score():
			return 1
		}
		return 0
	})

	out := make([]model.RankedItem, len(kept))
	for i, item := range kept {
		out[i] = model.RankedItem{
			Item:      item,
			Highlight: item.Score() >= HighlightThreshold,
		}
	}
	return out
}

// Items unwraps ranked items
func Items(ranked []model.RankedItem) []*model.ContentItem {
	out := make([]*model.ContentItem, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}
