package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/pkg/clock"
	pkglogger "github.com/datatrace-io/datatrace/pkg/logger"
)

// QuotaUserRepository looks up operator identities and their daily limits.
type QuotaUserRepository interface {
	GetActiveByID(ctx context.Context, id string) (*models.User, error)
}

// UsageRepository is the daily usage ledger contract. Increments must be
// atomic upserts so concurrent searches never lose updates.
type UsageRepository interface {
	GetSearchCount(ctx context.Context, userID, date string) (int, error)
	GetExportCount(ctx context.Context, userID, date string) (int, error)
	GetUsage(ctx context.Context, userID, date string) (*models.DailyUsage, error)
	IncrementSearchCount(ctx context.Context, userID, date string) error
	IncrementExportCount(ctx context.Context, userID, date string) error
}

// QuotaService gates searches and exports against per-user daily limits. All
// dates are computed in a fixed-offset timezone injected from config, never
// the process timezone.
type QuotaService struct {
	users  QuotaUserRepository
	usage  UsageRepository
	loc    *time.Location
	clock  clock.Clock
	logger *slog.Logger
}

func NewQuotaService(users QuotaUserRepository, usage UsageRepository, loc *time.Location, clk clock.Clock, logger *slog.Logger) *QuotaService {
	return &QuotaService{
		users:  users,
		usage:  usage,
		loc:    loc,
		clock:  clk,
		logger: logger,
	}
}

func (s *QuotaService) today() string {
	return clock.Date(s.clock.Now(), s.loc)
}

// DayBounds returns the half-open [midnight, next midnight) interval of the
// current quota-timezone day. The duplicate-suppression window uses the same
// calendar as the ledger.
func (s *QuotaService) DayBounds() (time.Time, time.Time) {
	now := s.clock.Now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return start, start.AddDate(0, 0, 1)
}

// CheckSearchLimit reports whether the user has search capacity left today.
// A missing counter row reads as zero usage.
func (s *QuotaService) CheckSearchLimit(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetActiveByID(ctx, userID)
	if err != nil {
		return false, err
	}

	count, err := s.usage.GetSearchCount(ctx, userID, s.today())
	if err != nil {
		return false, err
	}

	if count >= user.MaxSearchesPerDay {
		s.logger.Warn("daily search limit reached",
			slog.String("user_id", userID),
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Int("limit", user.MaxSearchesPerDay))
		return false, nil
	}
	return true, nil
}

// CheckExportLimit reports whether the user has export capacity left today.
func (s *QuotaService) CheckExportLimit(ctx context.Context, userID string) (bool, error) {
	user, err := s.users.GetActiveByID(ctx, userID)
	if err != nil {
		return false, err
	}

	count, err := s.usage.GetExportCount(ctx, userID, s.today())
	if err != nil {
		return false, err
	}

	if count >= user.MaxExportsPerDay {
		s.logger.Warn("daily export limit reached",
			slog.String("user_id", userID),
			slog.String("email", pkglogger.SanitizedEmail(user.Email)),
			slog.Int("limit", user.MaxExportsPerDay))
		return false, nil
	}
	return true, nil
}

// IncrementSearchCount bumps today's search counter. Called only for searches
// that returned results and were not same-day duplicates.
func (s *QuotaService) IncrementSearchCount(ctx context.Context, userID string) error {
	return s.usage.IncrementSearchCount(ctx, userID, s.today())
}

// IncrementExportCount bumps today's export counter.
func (s *QuotaService) IncrementExportCount(ctx context.Context, userID string) error {
	return s.usage.IncrementExportCount(ctx, userID, s.today())
}

// TodayUsage returns the current counters plus the user's limits for
// introspection endpoints.
func (s *QuotaService) TodayUsage(ctx context.Context, userID string) (*models.DailyUsage, *models.User, error) {
	user, err := s.users.GetActiveByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	usage, err := s.usage.GetUsage(ctx, userID, s.today())
	if err != nil {
		return nil, nil, err
	}

	return usage, user, nil
}
