package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/datatrace-io/datatrace/internal/models"
)

// Fingerprint derives a stable content hash of a request's semantics: logic,
// match type, enhanced flag, trimmed query, sorted field list and sorted
// field/value pairs. Limit and offset are excluded by construction so paging
// through one logical search never looks like a new search to the quota ledger.
func Fingerprint(req *models.SearchRequest) string {
	logic := strings.ToUpper(strings.TrimSpace(req.Logic))
	if logic != "AND" {
		logic = "OR"
	}
	matchType := strings.ToLower(strings.TrimSpace(req.MatchType))
	if matchType != "full" {
		matchType = "partial"
	}

	sortedFields := make([]string, 0, len(req.Fields))
	sortedFields = append(sortedFields, req.Fields...)
	sort.Strings(sortedFields)

	fqPairs := make([]string, 0, len(req.FieldQueries))
	for k, v := range req.FieldQueries {
		fqPairs = append(fqPairs, fmt.Sprintf("%s=%s", strings.ToLower(strings.TrimSpace(k)), strings.TrimSpace(v)))
	}
	sort.Strings(fqPairs)

	var base strings.Builder
	base.WriteString("logic=")
	base.WriteString(logic)
	base.WriteString(";match=")
	base.WriteString(matchType)
	base.WriteString(";enh=")
	if req.EnhancedMobile {
		base.WriteString("1")
	} else {
		base.WriteString("0")
	}
	base.WriteString(";q=")
	base.WriteString(strings.TrimSpace(req.Query))
	base.WriteString(";fields=")
	base.WriteString(strings.Join(sortedFields, ","))
	base.WriteString(";field_queries=")
	base.WriteString(strings.Join(fqPairs, ","))

	sum := sha256.Sum256([]byte(base.String()))
	return hex.EncodeToString(sum[:])
}
