package searchindex

import "github.com/singsphere/jukebox/internal/domain"

// BuildQuery renders q as an OpenSearch request body. Exact queries match the
// document id, fuzzy queries run a multi_match across all text fields.
func BuildQuery(q domain.Query) map[string]any {
	if q.Mode == domain.QueryExact {
		return map[string]any{
			"size": q.Size,
			"query": map[string]any{
				"match": map[string]any{"_id": q.Term},
			},
		}
	}

	return map[string]any{
		"size": q.Size,
		"query": map[string]any{
			"multi_match": map[string]any{"query": q.Term},
		},
	}
}
