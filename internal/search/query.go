package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Params describes a tour search.
type Params struct {
	Query      string // Free-text query
	Difficulty string // Optional exact difficulty filter
	Limit      int    // Max results (default 20)
	Offset     int    // Pagination offset
}

// Result is a complete search response.
type Result struct {
	Query  string `json:"query"`
	Total  uint64 `json:"total"`
	TookMs int64  `json:"took_ms"`
	Hits   []Hit  `json:"hits"`
}

// Hit is a single matching tour.
type Hit struct {
	ID             string            `json:"id"`
	Slug           string            `json:"slug"`
	Name           string            `json:"name"`
	Summary        string            `json:"summary"`
	Difficulty     string            `json:"difficulty"`
	Duration       int               `json:"duration"`
	Price          float64           `json:"price"`
	RatingsAverage float64           `json:"ratings_average"`
	Score          float64           `json:"score"`
	Highlights     map[string]string `json:"highlights,omitempty"`
}

const defaultLimit = 20

// Search executes a full-text query over the indexed tours.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	searchRequest := bleve.NewSearchRequestOptions(buildSearchQuery(params), limit, params.Offset, false)
	searchRequest.Fields = []string{
		"id", "slug", "name", "summary", "difficulty",
		"duration", "price", "ratings_average",
	}
	searchRequest.Highlight = bleve.NewHighlightWithStyle("html")
	searchRequest.Highlight.Fields = []string{"name", "summary"}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		h := Hit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if v, ok := hit.Fields["slug"].(string); ok {
			h.Slug = v
		}
		if v, ok := hit.Fields["name"].(string); ok {
			h.Name = v
		}
		if v, ok := hit.Fields["summary"].(string); ok {
			h.Summary = v
		}
		if v, ok := hit.Fields["difficulty"].(string); ok {
			h.Difficulty = v
		}
		if v, ok := hit.Fields["duration"].(float64); ok {
			h.Duration = int(v)
		}
		if v, ok := hit.Fields["price"].(float64); ok {
			h.Price = v
		}
		if v, ok := hit.Fields["ratings_average"].(float64); ok {
			h.RatingsAverage = v
		}

		if len(hit.Fragments) > 0 {
			h.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					h.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, h)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params Params) query.Query {
	var queries []query.Query

	if params.Query != "" {
		textQueries := []query.Query{}

		// Name match with highest boost
		nameMatch := bleve.NewMatchQuery(params.Query)
		nameMatch.SetField("name")
		nameMatch.SetBoost(3.0)
		textQueries = append(textQueries, nameMatch)

		summaryMatch := bleve.NewMatchQuery(params.Query)
		summaryMatch.SetField("summary")
		summaryMatch.SetBoost(1.5)
		textQueries = append(textQueries, summaryMatch)

		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		textQueries = append(textQueries, descMatch)

		// Fuzzy matching for typo tolerance on name
		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("name")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		// Prefix query for autocomplete (minimum 2 chars)
		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("name")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	if params.Difficulty != "" {
		difficultyQuery := bleve.NewTermQuery(params.Difficulty)
		difficultyQuery.SetField("difficulty")
		queries = append(queries, difficultyQuery)
	}

	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	return bleve.NewConjunctionQuery(queries...)
}
