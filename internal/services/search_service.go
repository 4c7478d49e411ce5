package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/query"
	"github.com/google/uuid"
)

const (
	searchTimeout   = 30 * time.Second
	lookupTimeout   = 10 * time.Second
	enhancedTimeout = 60 * time.Second
)

// PeopleRepository is the analytical-store contract the search service
// depends on.
type PeopleRepository interface {
	Search(ctx context.Context, pred *query.Predicate, limit, offset int) ([]models.Person, error)
	Count(ctx context.Context, pred *query.Predicate) (int, error)
	AllMatches(ctx context.Context, pred *query.Predicate) ([]models.Person, error)
	MasterOrderedMatches(ctx context.Context, pred *query.Predicate) ([]models.Person, error)
	GetByID(ctx context.Context, id string) (*models.Person, error)
	TotalRecords(ctx context.Context) (uint64, error)
	RecentPerformance(ctx context.Context) (float64, int64, error)
	LogPerformance(ctx context.Context, queryID, userID, queryText string, executionTimeMs, resultCount int) error
}

// SearchLogRepository persists and reads back the append-only search log.
type SearchLogRepository interface {
	Insert(ctx context.Context, entry *models.SearchLog) error
	GetByID(ctx context.Context, id, userID string) (*models.SearchLog, error)
	ExistsBetween(ctx context.Context, userID, fingerprint string, from, to time.Time) (bool, error)
}

// QuotaGate is the slice of the quota service the search paths need.
type QuotaGate interface {
	CheckSearchLimit(ctx context.Context, userID string) (bool, error)
	IncrementSearchCount(ctx context.Context, userID string) error
	DayBounds() (time.Time, time.Time)
}

// SearchService orchestrates every search variant: it gates on quota, routes
// between the primary executor and the mobile expansion, persists the search
// log, and charges quota only for productive, non-duplicate searches.
type SearchService struct {
	people PeopleRepository
	logs   SearchLogRepository
	quota  QuotaGate
	logger *slog.Logger
}

func NewSearchService(people PeopleRepository, logs SearchLogRepository, quota QuotaGate, logger *slog.Logger) *SearchService {
	return &SearchService{
		people: people,
		logs:   logs,
		quota:  quota,
		logger: logger,
	}
}

// Search executes a primary search, transparently upgrading to the mobile
// expansion when the request is mobile-shaped. An expansion failure falls back
// to the primary path instead of failing the request.
func (s *SearchService) Search(ctx context.Context, userID string, req *models.SearchRequest) (*models.SearchResponse, error) {
	allowed, err := s.quota.CheckSearchLimit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !allowed {
		return nil, models.ErrQuotaExceeded
	}

	if query.ShouldUseEnhancedMobile(req) {
		if number := query.ExtractMobileNumber(req); number != "" {
			enhanced, err := s.EnhancedMobileSearch(ctx, userID, number, req.Limit, req.Offset)
			if err == nil {
				return flattenEnhanced(enhanced), nil
			}
			s.logger.Warn("enhanced mobile search failed, falling back to primary",
				slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}

	pred, _, err := query.Compile(req)
	if err != nil {
		return nil, err
	}

	searchID := uuid.New().String()
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := s.people.Search(execCtx, pred, req.Limit, req.Offset)
	if err != nil {
		return nil, execError(err)
	}

	total, err := s.people.Count(execCtx, pred)
	if err != nil {
		// Degrade to the page length rather than failing a search that
		// already produced rows.
		s.logger.Error("count query failed, using page length",
			slog.String("search_id", searchID), slog.String("error", err.Error()))
		total = len(results)
	}

	elapsed := int(time.Since(start).Milliseconds())
	fingerprint := query.Fingerprint(req)
	isDup := s.isDuplicate(ctx, userID, fingerprint)

	s.logSearch(ctx, userID, searchID, req, fingerprint, total, elapsed)

	where, _ := pred.SQL()
	if err := s.people.LogPerformance(ctx, searchID, userID, where, elapsed, total); err != nil {
		s.logger.Warn("performance log failed", slog.String("error", err.Error()))
	}

	s.chargeQuota(ctx, userID, total, isDup)

	resp := &models.SearchResponse{
		Results:       results,
		TotalCount:    total,
		ExecutionTime: elapsed,
		SearchID:      searchID,
		HasMore:       req.Offset+len(results) < total,
	}
	if total == 0 {
		resp.Message = "no records matched the search criteria"
	}
	return resp, nil
}

// SearchWithin re-executes a persisted search AND-combined with new criteria.
// The stored entry is owner-scoped; refining someone else's search is
// indistinguishable from refining a nonexistent one.
func (s *SearchService) SearchWithin(ctx context.Context, userID string, req *models.SearchWithinRequest) (*models.SearchResponse, error) {
	allowed, err := s.quota.CheckSearchLimit(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("quota check failed: %w", err)
	}
	if !allowed {
		return nil, models.ErrQuotaExceeded
	}

	entry, err := s.logs.GetByID(ctx, req.SearchID, userID)
	if err != nil {
		return nil, err
	}

	var original models.SearchRequest
	if err := json.Unmarshal(entry.SearchQuery, &original); err != nil {
		s.logger.Error("stored search criteria unreadable",
			slog.String("search_id", req.SearchID), slog.String("error", err.Error()))
		return nil, models.ErrInternalServer
	}

	origPred, _, err := query.Compile(&original)
	if err != nil {
		return nil, err
	}
	incPred, err := query.CompileIncremental(req)
	if err != nil {
		return nil, err
	}
	combined := origPred.And(incPred)

	searchID := uuid.New().String()
	start := time.Now()

	execCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	results, err := s.people.Search(execCtx, combined, req.Limit, req.Offset)
	if err != nil {
		return nil, execError(err)
	}

	total, err := s.people.Count(execCtx, combined)
	if err != nil {
		s.logger.Error("count query failed, using page length",
			slog.String("search_id", searchID), slog.String("error", err.Error()))
		total = len(results)
	}

	elapsed := int(time.Since(start).Milliseconds())

	// The refinement is logged as its own entry so it can itself be refined.
	logged := &models.SearchRequest{
		Query:     fmt.Sprintf("WITHIN[%s]: %s", req.SearchID, req.Query),
		Fields:    req.Fields,
		MatchType: req.MatchType,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	fingerprint := query.Fingerprint(logged)
	isDup := s.isDuplicate(ctx, userID, fingerprint)

	s.logSearch(ctx, userID, searchID, logged, fingerprint, total, elapsed)

	where, _ := combined.SQL()
	if err := s.people.LogPerformance(ctx, searchID, userID, where, elapsed, total); err != nil {
		s.logger.Warn("performance log failed", slog.String("error", err.Error()))
	}

	s.chargeQuota(ctx, userID, total, isDup)

	resp := &models.SearchResponse{
		Results:       results,
		TotalCount:    total,
		ExecutionTime: elapsed,
		SearchID:      searchID,
		HasMore:       req.Offset+len(results) < total,
	}
	if total == 0 {
		resp.Message = "no records matched the refined criteria"
	}
	return resp, nil
}

// GetPersonByID fetches one person row.
func (s *SearchService) GetPersonByID(ctx context.Context, id string) (*models.Person, error) {
	execCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	return s.people.GetByID(execCtx, id)
}

// GetSearchStats returns dataset size plus 24h performance aggregates.
// Performance read failures degrade to zeros; the record count is
// authoritative.
func (s *SearchService) GetSearchStats(ctx context.Context) (*models.SearchStats, error) {
	total, err := s.people.TotalRecords(ctx)
	if err != nil {
		return nil, execError(err)
	}

	avgTime, count, err := s.people.RecentPerformance(ctx)
	if err != nil {
		s.logger.Warn("performance stats unavailable", slog.String("error", err.Error()))
		avgTime, count = 0, 0
	}

	return &models.SearchStats{
		TotalRecords:    total,
		AvgSearchTimeMs: avgTime,
		SearchesLast24h: count,
	}, nil
}

// isDuplicate checks for a same-day search with the same fingerprint. Ledger
// read failures count as non-duplicate; the worst case is one extra charge.
func (s *SearchService) isDuplicate(ctx context.Context, userID, fingerprint string) bool {
	from, to := s.quota.DayBounds()
	isDup, err := s.logs.ExistsBetween(ctx, userID, fingerprint, from, to)
	if err != nil {
		s.logger.Warn("duplicate check failed", slog.String("error", err.Error()))
		return false
	}
	return isDup
}

// logSearch persists the search log entry with the fingerprint injected into
// the serialized request. Log failures never fail the search.
func (s *SearchService) logSearch(ctx context.Context, userID, searchID string, req *models.SearchRequest, fingerprint string, resultCount, elapsed int) {
	logged := *req
	logged.Fingerprint = fingerprint

	payload, err := json.Marshal(&logged)
	if err != nil {
		s.logger.Error("search log marshal failed", slog.String("error", err.Error()))
		return
	}

	entry := &models.SearchLog{
		ID:              searchID,
		UserID:          userID,
		SearchQuery:     payload,
		ResultCount:     resultCount,
		ExecutionTimeMs: elapsed,
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Error("search log insert failed",
			slog.String("search_id", searchID), slog.String("error", err.Error()))
	}
}

// chargeQuota increments the daily counter only for searches that found
// something and were not repeats of an earlier same-day search.
func (s *SearchService) chargeQuota(ctx context.Context, userID string, total int, isDup bool) {
	if total == 0 || isDup {
		return
	}
	if err := s.quota.IncrementSearchCount(ctx, userID); err != nil {
		s.logger.Error("usage increment failed",
			slog.String("user_id", userID), slog.String("error", err.Error()))
	}
}

// execError maps store failures to the API error vocabulary, distinguishing
// deadline expiry from execution failure.
func execError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrSearchTimeout
	}
	return models.ErrExecutionFailed
}

// flattenEnhanced converts the two-phase expansion result into the common
// response shape, direct matches first.
func flattenEnhanced(r *models.EnhancedMobileResult) *models.SearchResponse {
	results := make([]models.Person, 0, len(r.DirectMatches)+len(r.MasterIDMatches))
	results = append(results, r.DirectMatches...)
	results = append(results, r.MasterIDMatches...)

	resp := &models.SearchResponse{
		Results:       results,
		TotalCount:    r.TotalCount,
		ExecutionTime: r.ExecutionTime,
		SearchID:      r.SearchID,
		HasMore:       r.HasMore,
	}
	if r.TotalCount == 0 {
		resp.Message = "no records matched the search criteria"
	}
	return resp
}
