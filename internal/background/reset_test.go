package background

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/datatrace-io/datatrace/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUsageRepo struct {
	resetDates     []string
	resetOps       []string
	deletedCutoffs []string
	rows           int64
}

func (m *mockUsageRepo) ResetForDate(ctx context.Context, date, operation string) (int64, error) {
	m.resetDates = append(m.resetDates, date)
	m.resetOps = append(m.resetOps, operation)
	return m.rows, nil
}

func (m *mockUsageRepo) DeleteOlderThan(ctx context.Context, cutoffDate string) (int64, error) {
	m.deletedCutoffs = append(m.deletedCutoffs, cutoffDate)
	return m.rows, nil
}

type mockSystemLogRepo struct {
	operations []string
	details    []string
}

func (m *mockSystemLogRepo) Insert(ctx context.Context, operation, details string) error {
	m.operations = append(m.operations, operation)
	m.details = append(m.details, details)
	return nil
}

func newManager(now time.Time, usage *mockUsageRepo, logs *mockSystemLogRepo) *ResetManager {
	loc := time.FixedZone("QUOTA", int((5*time.Hour + 30*time.Minute).Seconds()))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResetManager(usage, logs, loc, clock.Fixed(now), 90, logger)
}

func TestNextResetTime(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midday local time",
			now:  time.Date(2025, 6, 1, 6, 30, 0, 0, time.UTC), // 12:00 local
			want: time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC), // next local midnight
		},
		{
			name: "just after local midnight",
			now:  time.Date(2025, 6, 1, 18, 31, 0, 0, time.UTC), // 00:01 local June 2
			want: time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC),
		},
		{
			name: "utc date behind local date",
			now:  time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC), // 01:30 local June 2
			want: time.Date(2025, 6, 2, 18, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := newManager(tt.now, &mockUsageRepo{}, &mockSystemLogRepo{})
			next := rm.NextResetTime()
			assert.True(t, next.Equal(tt.want), "got %s want %s", next, tt.want)
		})
	}
}

func TestNextCleanupTime_SundayOneAM(t *testing.T) {
	// 2025-06-04 is a Wednesday; next Sunday is June 8.
	now := time.Date(2025, 6, 4, 6, 30, 0, 0, time.UTC)
	rm := newManager(now, &mockUsageRepo{}, &mockSystemLogRepo{})

	next := rm.nextCleanupTime()

	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, 1, next.Hour())
	assert.Equal(t, 8, next.Day())
}

func TestNextCleanupTime_SundayAfterOneAM(t *testing.T) {
	// Sunday 02:00 local: the slot has passed, roll to next Sunday.
	now := time.Date(2025, 6, 7, 20, 30, 0, 0, time.UTC) // Sunday June 8, 02:00 local
	rm := newManager(now, &mockUsageRepo{}, &mockSystemLogRepo{})

	next := rm.nextCleanupTime()

	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, 15, next.Day())
}

func TestManualReset(t *testing.T) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) // June 2 local
	usage := &mockUsageRepo{rows: 7}
	rm := newManager(now, usage, &mockSystemLogRepo{})

	deleted, err := rm.ManualReset(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
	assert.Equal(t, []string{"2025-06-02"}, usage.resetDates)
	assert.Equal(t, []string{"manual_usage_reset"}, usage.resetOps)
}

func TestRunCleanup_UsesRetentionCutoff(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	usage := &mockUsageRepo{rows: 3}
	logs := &mockSystemLogRepo{}
	rm := newManager(now, usage, logs)

	rm.runCleanup(context.Background())

	require.Len(t, usage.deletedCutoffs, 1)
	assert.Equal(t, "2025-03-03", usage.deletedCutoffs[0])
	require.Len(t, logs.operations, 1)
	assert.Equal(t, "usage_retention_cleanup", logs.operations[0])
	assert.Contains(t, logs.details[0], "rows_deleted=3")
}
