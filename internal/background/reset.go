package background

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/datatrace-io/datatrace/pkg/clock"
)

const (
	resetTimeout = 30 * time.Second

	// weeklyCleanupHour is 01:00 on Sunday in the quota timezone, an hour
	// after the daily reset so the two never overlap.
	weeklyCleanupHour = 1
)

// UsageRepository is the slice of the usage ledger the scheduler needs.
// ResetForDate deletes the date's counters and writes the audit row in one
// transaction.
type UsageRepository interface {
	ResetForDate(ctx context.Context, date, operation string) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoffDate string) (int64, error)
}

// SystemLogRepository records audit rows for scheduler actions.
type SystemLogRepository interface {
	Insert(ctx context.Context, operation, details string) error
}

// ResetManager clears the daily usage ledger at midnight in the quota
// timezone and prunes old counters weekly. The next wake-up is recomputed
// after each reset completes, so a slow reset never causes a double fire.
type ResetManager struct {
	usage         UsageRepository
	systemLogs    SystemLogRepository
	loc           *time.Location
	clock         clock.Clock
	retentionDays int
	logger        *slog.Logger
	stopCh        chan struct{}
}

func NewResetManager(usage UsageRepository, systemLogs SystemLogRepository, loc *time.Location, clk clock.Clock, retentionDays int, logger *slog.Logger) *ResetManager {
	return &ResetManager{
		usage:         usage,
		systemLogs:    systemLogs,
		loc:           loc,
		clock:         clk,
		retentionDays: retentionDays,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

// Start runs the daily reset and weekly cleanup loops until Stop is called or
// the context is cancelled.
func (rm *ResetManager) Start(ctx context.Context) {
	resetTimer := time.NewTimer(time.Until(rm.NextResetTime()))
	defer resetTimer.Stop()
	cleanupTimer := time.NewTimer(time.Until(rm.nextCleanupTime()))
	defer cleanupTimer.Stop()

	rm.logger.Info("usage reset scheduler started",
		slog.Time("next_reset", rm.NextResetTime()),
		slog.Time("next_cleanup", rm.nextCleanupTime()))

	for {
		select {
		case <-resetTimer.C:
			rm.runReset(ctx)
			resetTimer.Reset(time.Until(rm.NextResetTime()))
		case <-cleanupTimer.C:
			rm.runCleanup(ctx)
			cleanupTimer.Reset(time.Until(rm.nextCleanupTime()))
		case <-rm.stopCh:
			rm.logger.Info("usage reset scheduler stopped")
			return
		case <-ctx.Done():
			rm.logger.Info("usage reset scheduler context cancelled")
			return
		}
	}
}

// Stop signals the scheduler to stop
func (rm *ResetManager) Stop() {
	close(rm.stopCh)
}

// NextResetTime returns the next midnight in the quota timezone.
func (rm *ResetManager) NextResetTime() time.Time {
	now := rm.clock.Now().In(rm.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, rm.loc).AddDate(0, 0, 1)
	return next
}

// nextCleanupTime returns the next Sunday 01:00 in the quota timezone.
func (rm *ResetManager) nextCleanupTime() time.Time {
	now := rm.clock.Now().In(rm.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), weeklyCleanupHour, 0, 0, 0, rm.loc)
	for !next.After(now) || next.Weekday() != time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// ManualReset clears today's counters immediately. Exposed to admins for
// recovery after quota misconfiguration.
func (rm *ResetManager) ManualReset(ctx context.Context) (int64, error) {
	return rm.reset(ctx, "manual_usage_reset")
}

func (rm *ResetManager) runReset(ctx context.Context) {
	resetCtx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	if _, err := rm.reset(resetCtx, "daily_usage_reset"); err != nil {
		rm.logger.Error("daily usage reset failed", slog.Any("error", err))
	}
}

// reset deletes the ledger rows for the current quota-timezone date. Just
// after midnight that is the new, empty day; any rows present belong to users
// who slipped in between midnight and the timer firing. The delete and its
// audit row commit in one transaction at the repository.
func (rm *ResetManager) reset(ctx context.Context, operation string) (int64, error) {
	date := clock.Date(rm.clock.Now(), rm.loc)

	deleted, err := rm.usage.ResetForDate(ctx, date, operation)
	if err != nil {
		return 0, fmt.Errorf("usage reset failed: %w", err)
	}

	rm.logger.Info("usage counters reset",
		slog.String("operation", operation),
		slog.String("date", date),
		slog.Int64("rows_deleted", deleted))
	return deleted, nil
}

func (rm *ResetManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	cutoff := clock.Date(rm.clock.Now().AddDate(0, 0, -rm.retentionDays), rm.loc)
	deleted, err := rm.usage.DeleteOlderThan(cleanupCtx, cutoff)
	if err != nil {
		rm.logger.Error("usage retention cleanup failed", slog.Any("error", err))
		return
	}

	details := fmt.Sprintf("cutoff=%s rows_deleted=%d", cutoff, deleted)
	if err := rm.systemLogs.Insert(cleanupCtx, "usage_retention_cleanup", details); err != nil {
		rm.logger.Error("cleanup audit log failed", slog.Any("error", err))
	}

	if deleted > 0 {
		rm.logger.Info("usage retention cleanup completed",
			slog.String("cutoff", cutoff),
			slog.Int64("rows_deleted", deleted))
	}
}
