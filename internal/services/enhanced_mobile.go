package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/query"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
	"github.com/google/uuid"
)

// EnhancedMobileSearch runs the two-phase mobile expansion: phase one matches
// the number directly against mobile and alt (exact, suffix, prefix), phase
// two widens to every row sharing a valid master ID with a phase-one hit,
// excluding the phase-one rows themselves. Pagination treats the concatenation
// direct-then-master as one logical result list.
func (s *SearchService) EnhancedMobileSearch(ctx context.Context, userID, mobileNumber string, limit, offset int) (*models.EnhancedMobileResult, error) {
	allowed, err := s.quota.CheckSearchLimit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !allowed {
		return nil, models.ErrQuotaExceeded
	}

	cleaned := query.CleanNumber(mobileNumber)
	if cleaned == "" {
		return nil, models.ErrEmptyCriteria
	}

	searchID := uuid.New().String()
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, enhancedTimeout)
	defer cancel()

	direct, err := s.people.AllMatches(execCtx, query.DirectMobilePredicate(cleaned))
	if err != nil {
		return nil, execError(err)
	}

	masterIDs := collectMasterIDs(direct)

	var master []models.Person
	if len(masterIDs) > 0 {
		master, err = s.people.MasterOrderedMatches(execCtx, query.MasterIDPredicate(masterIDs, cleaned))
		if err != nil {
			return nil, execError(err)
		}
	}

	total := len(direct) + len(master)
	directPage, masterPage := mergePage(direct, master, limit, offset)

	elapsed := int(time.Since(start).Milliseconds())

	// The number itself is personal data; only its tail reaches the log.
	s.logger.Info("enhanced mobile expansion",
		slog.String("search_id", searchID),
		slog.String("mobile", pkglogger.MaskedMobile(cleaned)),
		slog.Int("direct_matches", len(direct)),
		slog.Int("master_matches", len(master)))

	logged := &models.SearchRequest{
		Query:          fmt.Sprintf("ENHANCED_MOBILE: %s", mobileNumber),
		Fields:         []string{"mobile", "alt"},
		Logic:          "OR",
		MatchType:      "partial",
		Limit:          limit,
		Offset:         offset,
		EnhancedMobile: true,
	}
	fingerprint := query.Fingerprint(logged)
	isDup := s.isDuplicate(ctx, userID, fingerprint)

	s.logSearch(ctx, userID, searchID, logged, fingerprint, total, elapsed)

	if err := s.people.LogPerformance(ctx, searchID, userID, logged.Query, elapsed, total); err != nil {
		s.logger.Warn("performance log failed", slog.String("error", err.Error()))
	}

	s.chargeQuota(ctx, userID, total, isDup)

	return &models.EnhancedMobileResult{
		DirectMatches:        directPage,
		MasterIDMatches:      masterPage,
		TotalDirectMatches:   len(direct),
		TotalMasterIDMatches: len(master),
		TotalCount:           total,
		ExecutionTime:        elapsed,
		SearchID:             searchID,
		HasMore:              offset+len(directPage)+len(masterPage) < total,
		MasterIDs:            masterIDs,
	}, nil
}

// collectMasterIDs gathers the distinct valid master IDs of the direct
// matches, preserving first-seen order.
func collectMasterIDs(direct []models.Person) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range direct {
		if !query.IsValidMasterID(p.MasterID) {
			continue
		}
		if seen[p.MasterID] {
			continue
		}
		seen[p.MasterID] = true
		ids = append(ids, p.MasterID)
	}
	return ids
}

// mergePage slices one page out of the logical direct-then-master sequence.
// An offset inside the direct range fills from direct first and spills the
// remaining capacity into master; an offset past the direct range indexes
// straight into master. A non-positive limit returns everything.
func mergePage(direct, master []models.Person, limit, offset int) ([]models.Person, []models.Person) {
	if limit <= 0 {
		return direct, master
	}

	if offset < len(direct) {
		end := offset + limit
		if end > len(direct) {
			end = len(direct)
		}
		directPage := direct[offset:end]

		remaining := limit - len(directPage)
		if remaining > len(master) {
			remaining = len(master)
		}
		return directPage, master[:remaining]
	}

	masterOffset := offset - len(direct)
	if masterOffset >= len(master) {
		return nil, nil
	}
	end := masterOffset + limit
	if end > len(master) {
		end = len(master)
	}
	return nil, master[masterOffset:end]
}
