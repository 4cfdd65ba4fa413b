package dto

import "github.com/noah-isme/globalpath-api/internal/catalog"

// CatalogListRequest captures one page of a filtered catalog view.
type CatalogListRequest struct {
	Kind     catalog.Kind
	Query    string
	Facets   catalog.FilterSpec
	Sort     string
	Page     int
	PageSize int
}

// CatalogListResponse is a page of a filtered catalog view plus the freshness of its collection.
type CatalogListResponse struct {
	Kind       catalog.Kind             `json:"kind"`
	Items      []catalog.Entity         `json:"items"`
	Pagination PaginationMeta           `json:"pagination"`
	Collection catalog.CollectionStatus `json:"collection"`
}

// CatalogFeaturedRequest toggles the featured flag.
type CatalogFeaturedRequest struct {
	Featured *bool `json:"featured" validate:"required"`
}

// CatalogRefreshResponse reports the collection state after a refresh.
type CatalogRefreshResponse struct {
	Collections []catalog.CollectionStatus `json:"collections"`
}

// CatalogSeedResponse reports the outcome of a bulk catalog load.
type CatalogSeedResponse struct {
	Institutions int                        `json:"institutions"`
	Programs     int                        `json:"programs"`
	Postings     int                        `json:"postings"`
	Affected     int64                      `json:"affected"`
	Collections  []catalog.CollectionStatus `json:"collections"`
}

// SuggestionListResponse wraps search suggestions for the header search box.
type SuggestionListResponse struct {
	Query       string               `json:"query"`
	Suggestions []catalog.Suggestion `json:"suggestions"`
}
