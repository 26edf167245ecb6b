package entity

import "github.com/clindraft/clindraft/internal/model"

// Merge concatenates entity lists, dropping exact key/value duplicates.
// The first occurrence wins, so rule results should be passed first.
func Merge(lists ...[]model.Entity) []model.Entity {
	type kv struct{ key, value string }
	seen := make(map[kv]bool)

	var merged []model.Entity
	for _, list := range lists {
		for _, e := range list {
			id := kv{e.Key, e.Value}
			if seen[id] {
				continue
			}
			seen[id] = true
			merged = append(merged, e)
		}
	}
	return merged
}

// Resolve picks one value per key for report use. Rule-sourced values are
// preferred over LLM values; among equal sources the longest value wins,
// on the assumption that it carries the most detail.
func Resolve(entities []model.Entity) map[string]string {
	best := make(map[string]model.Entity)

	for _, e := range entities {
		cur, ok := best[e.Key]
		if !ok {
			best[e.Key] = e
			continue
		}
		if rank(e.Source) > rank(cur.Source) {
			best[e.Key] = e
			continue
		}
		if rank(e.Source) == rank(cur.Source) && len(e.Value) > len(cur.Value) {
			best[e.Key] = e
		}
	}

	resolved := make(map[string]string, len(best))
	for key, e := range best {
		resolved[key] = e.Value
	}
	return resolved
}

func rank(s model.EntitySource) int {
	if s == model.EntitySourceRule {
		return 1
	}
	return 0
}
