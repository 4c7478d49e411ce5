package query

import (
	"regexp"
	"strings"

	"github.com/datatrace-io/datatrace/internal/models"
)

var (
	trailingLetters = regexp.MustCompile(`[A-Za-z]*$`)
	allDigits       = regexp.MustCompile(`^\d+$`)
)

// CleanNumber strips everything but digits from a phone-number-shaped input.
func CleanNumber(s string) string {
	return nonDigits.ReplaceAllString(s, "")
}

// IsMobileNumber reports whether a value looks like a mobile number: 10 to 12
// digits once separators and country-code punctuation are stripped.
func IsMobileNumber(s string) bool {
	n := len(CleanNumber(s))
	return n >= 10 && n <= 12
}

// ShouldUseEnhancedMobile decides whether a request is routed to the two-phase
// mobile expansion instead of the primary executor.
//
// Field-specific mode triggers only for exactly one non-empty pair whose field
// is mobile or alt and whose value is mobile-like; any extra non-empty field or
// a non-mobile field suppresses it. Legacy mode triggers when every requested
// field is mobile/alt and the query is mobile-like. With no fields at all, the
// bare query decides.
func ShouldUseEnhancedMobile(req *models.SearchRequest) bool {
	if req.EnhancedMobile {
		return true
	}

	if len(req.FieldQueries) > 0 {
		nonEmpty := 0
		mobileOnly := true
		mobileLike := false
		for field, value := range req.FieldQueries {
			val := strings.TrimSpace(value)
			if val == "" {
				continue
			}
			nonEmpty++
			if field == "mobile" || field == "alt" {
				if IsMobileNumber(val) {
					mobileLike = true
				}
			} else {
				mobileOnly = false
			}
		}
		return nonEmpty == 1 && mobileOnly && mobileLike
	}

	if len(req.Fields) > 0 {
		for _, f := range req.Fields {
			if f != "mobile" && f != "alt" {
				return false
			}
		}
		return IsMobileNumber(req.Query)
	}

	return IsMobileNumber(req.Query)
}

// ExtractMobileNumber pulls the mobile-shaped value out of a request that
// passed the trigger heuristic. Returns "" when none is present.
func ExtractMobileNumber(req *models.SearchRequest) string {
	for field, value := range req.FieldQueries {
		if (field == "mobile" || field == "alt") && IsMobileNumber(value) {
			return value
		}
	}
	if IsMobileNumber(req.Query) {
		return req.Query
	}
	return ""
}

// IsValidMasterID filters grouping identifiers usable for expansion. Masked
// IDs carry "x" placeholders and must never widen a search; very short IDs are
// partial captures. A trailing alphabetic suffix is allowed (e.g. 718834427584M)
// as long as the numeric prefix is all digits.
func IsValidMasterID(masterID string) bool {
	if masterID == "" {
		return false
	}
	if strings.Contains(strings.ToLower(masterID), "x") {
		return false
	}
	if len(masterID) < 8 {
		return false
	}
	base := trailingLetters.ReplaceAllString(masterID, "")
	return allDigits.MatchString(base)
}

// DirectMobilePredicate matches rows whose mobile or alt equals, ends with, or
// starts with the cleaned number. This is phase one of the mobile expansion and
// also the exclusion filter for phase two.
func DirectMobilePredicate(cleaned string) *Predicate {
	return NewPredicate(Or(
		Eq("mobile", cleaned),
		Suffix("mobile", cleaned),
		Prefix("mobile", cleaned),
		Eq("alt", cleaned),
		Suffix("alt", cleaned),
		Prefix("alt", cleaned),
	))
}

// MasterIDPredicate matches rows sharing any of the given master IDs while
// excluding rows the direct-match phase already returned.
func MasterIDPredicate(masterIDs []string, cleaned string) *Predicate {
	direct := DirectMobilePredicate(cleaned)
	return NewPredicate(And(
		In("master_id", masterIDs),
		Not(direct.root),
	))
}
