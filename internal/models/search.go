package models

import "time"

// SearchRequest carries the search criteria. Field-specific queries
// (FieldQueries) are the preferred form; Query+Fields is the legacy form where
// one value is applied across a field list.
type SearchRequest struct {
	Query          string            `json:"query"`
	Fields         []string          `json:"fields"`
	FieldQueries   map[string]string `json:"field_queries,omitempty"`
	Logic          string            `json:"logic" validate:"omitempty,oneof=AND OR"`
	MatchType      string            `json:"match_type" validate:"omitempty,oneof=partial full"`
	Limit          int               `json:"limit" validate:"min=0,max=10000"`
	Offset         int               `json:"offset" validate:"min=0"`
	EnhancedMobile bool              `json:"enhanced_mobile"`

	// Fingerprint is populated when the request is persisted to the search
	// log; it is never accepted from clients.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// SearchWithinRequest refines a previously persisted search by AND-combining
// it with new criteria.
type SearchWithinRequest struct {
	SearchID  string   `json:"search_id" validate:"required,uuid"`
	Query     string   `json:"query" validate:"required"`
	Fields    []string `json:"fields"`
	MatchType string   `json:"match_type" validate:"omitempty,oneof=partial full"`
	Limit     int      `json:"limit" validate:"min=0,max=10000"`
	Offset    int      `json:"offset" validate:"min=0"`
}

// SearchResponse is the result page for any search variant.
type SearchResponse struct {
	Results       []Person `json:"results"`
	TotalCount    int      `json:"total_count"`
	ExecutionTime int      `json:"execution_time_ms"`
	SearchID      string   `json:"search_id"`
	HasMore       bool     `json:"has_more"`
	Message       string   `json:"message,omitempty"`
}

// EnhancedMobileResult is the intermediate result of the two-phase mobile
// expansion before it is flattened into a SearchResponse.
type EnhancedMobileResult struct {
	DirectMatches        []Person `json:"direct_matches"`
	MasterIDMatches      []Person `json:"master_id_matches"`
	TotalDirectMatches   int      `json:"total_direct_matches"`
	TotalMasterIDMatches int      `json:"total_master_id_matches"`
	TotalCount           int      `json:"total_count"`
	ExecutionTime        int      `json:"execution_time_ms"`
	SearchID             string   `json:"search_id"`
	HasMore              bool     `json:"has_more"`
	MasterIDs            []string `json:"master_ids"`
}

// SearchLog is an append-only record of an executed search. SearchQuery holds
// the serialized request with the fingerprint injected.
type SearchLog struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	SearchQuery     []byte    `json:"search_query"`
	SearchTime      time.Time `json:"search_time"`
	ResultCount     int       `json:"result_count"`
	ExecutionTimeMs int       `json:"execution_time_ms"`
}

// SearchStats summarizes the dataset and recent search performance.
type SearchStats struct {
	TotalRecords    uint64  `json:"total_records"`
	AvgSearchTimeMs float64 `json:"avg_search_time_ms"`
	SearchesLast24h int64   `json:"searches_last_24h"`
}
