package query

import (
	"regexp"
	"sort"
	"strings"

	"github.com/datatrace-io/datatrace/internal/models"
)

// StoredFields are the eight directly stored searchable columns, in the order
// the legacy all-field fallback applies them.
var StoredFields = []string{"mobile", "name", "fname", "address", "alt", "circle", "email", "master_id"}

// validFields is the closed set of honored search fields. pincode is virtual:
// it is materialized from the first 6-digit token of address at the store layer.
var validFields = map[string]bool{
	"mobile":    true,
	"name":      true,
	"fname":     true,
	"address":   true,
	"alt":       true,
	"circle":    true,
	"email":     true,
	"master_id": true,
	"pincode":   true,
}

var nonDigits = regexp.MustCompile(`\D`)

// IsValidField reports whether a client-supplied field name is searchable.
// Unknown fields are dropped silently on every query path.
func IsValidField(field string) bool {
	return validFields[field]
}

// Compile turns a search request into a predicate tree plus the list of fields
// that actually contributed terms. Field-specific queries take precedence; the
// legacy single query falls back to the supplied field list or, when that is
// empty, all eight stored fields. A request yielding zero terms is rejected
// with ErrEmptyCriteria rather than compiled into a match-everything filter.
func Compile(req *models.SearchRequest) (*Predicate, []string, error) {
	matchType := strings.ToLower(strings.TrimSpace(req.MatchType))

	var terms []Node
	var used []string

	if len(req.FieldQueries) > 0 {
		// Map iteration order is random; sort keys so the rendered SQL is
		// deterministic for identical requests.
		fields := make([]string, 0, len(req.FieldQueries))
		for field := range req.FieldQueries {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			if !IsValidField(field) {
				continue
			}
			val := strings.TrimSpace(req.FieldQueries[field])
			if val == "" {
				continue
			}
			if node, ok := fieldTerm(field, val, matchType); ok {
				terms = append(terms, node)
				used = append(used, field)
			}
		}
	}

	if len(terms) == 0 {
		query := strings.TrimSpace(req.Query)
		if query != "" {
			fields := validSubset(req.Fields)
			if len(fields) == 0 {
				fields = StoredFields
			}
			for _, field := range fields {
				if node, ok := fieldTerm(field, query, matchType); ok {
					terms = append(terms, node)
					used = append(used, field)
				}
			}
		}
	}

	if len(terms) == 0 {
		return nil, nil, models.ErrEmptyCriteria
	}

	// AND only when explicitly requested; any other logic value means OR.
	if strings.ToUpper(strings.TrimSpace(req.Logic)) == "AND" {
		return NewPredicate(And(terms...)), used, nil
	}
	return NewPredicate(Or(terms...)), used, nil
}

// fieldTerm builds the predicate term for one field/value pair. Returns false
// when the pair yields no term (only possible for short pincode values).
func fieldTerm(field, value, matchType string) (Node, bool) {
	if field == "pincode" {
		return pincodeTerm(value)
	}
	if matchType == "full" {
		return Eq(field, value), true
	}
	return Contains(field, value), true
}

// pincodeTerm resolves the virtual pincode field. Exactly 6 digits hits the
// materialized column; 4-5 digits fall back to a compound filter on the raw
// address (cheap substring scan plus a token-boundary regex so "1100" does not
// match inside "110001"); anything else drops the field.
func pincodeTerm(value string) (Node, bool) {
	digits := nonDigits.ReplaceAllString(strings.TrimSpace(value), "")
	switch {
	case len(digits) == 6:
		return Eq("pincode", digits), true
	case len(digits) == 4 || len(digits) == 5:
		pattern := "(^|[^0-9])" + regexp.QuoteMeta(digits) + "([^0-9]|$)"
		return And(Contains("address", digits), Regex("address", pattern)), true
	default:
		return nil, false
	}
}

func validSubset(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if IsValidField(f) {
			out = append(out, f)
		}
	}
	return out
}

// CompileIncremental compiles the refinement half of a search-within request.
// The incremental terms are always OR-combined internally and default to the
// full stored field set when no fields are supplied.
func CompileIncremental(req *models.SearchWithinRequest) (*Predicate, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, models.ErrEmptyCriteria
	}

	fields := validSubset(req.Fields)
	if len(fields) == 0 {
		fields = StoredFields
	}

	matchType := strings.ToLower(strings.TrimSpace(req.MatchType))
	terms := make([]Node, 0, len(fields))
	for _, field := range fields {
		if node, ok := fieldTerm(field, query, matchType); ok {
			terms = append(terms, node)
		}
	}
	if len(terms) == 0 {
		return nil, models.ErrEmptyCriteria
	}

	return NewPredicate(Or(terms...)), nil
}
