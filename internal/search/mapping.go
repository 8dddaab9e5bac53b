package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for tour documents.
//
// Priorities:
//  1. Fast full-text search on name and summary with English stemming
//  2. Description searchable but not stored (too large)
//  3. Exact keyword matching on difficulty for filtering
//  4. Numeric fields stored for retrieval and range filters
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Name - primary search target
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Summary - searchable text
	summaryFieldMapping := bleve.NewTextFieldMapping()
	summaryFieldMapping.Analyzer = en.AnalyzerName
	summaryFieldMapping.Store = true
	summaryFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("summary", summaryFieldMapping)

	// Description - searchable but not stored
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// ID and slug - stored, never analyzed
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	idFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	slugFieldMapping := bleve.NewTextFieldMapping()
	slugFieldMapping.Analyzer = keyword.Name
	slugFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("slug", slugFieldMapping)

	// Difficulty - exact match filter
	difficultyFieldMapping := bleve.NewTextFieldMapping()
	difficultyFieldMapping.Analyzer = keyword.Name
	difficultyFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("difficulty", difficultyFieldMapping)

	// Numerics - stored for retrieval in results
	durationFieldMapping := bleve.NewNumericFieldMapping()
	durationFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("duration", durationFieldMapping)

	priceFieldMapping := bleve.NewNumericFieldMapping()
	priceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("price", priceFieldMapping)

	ratingsFieldMapping := bleve.NewNumericFieldMapping()
	ratingsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("ratings_average", ratingsFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
