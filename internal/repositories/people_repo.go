package repositories

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/datatrace-io/datatrace/internal/database"
	"github.com/datatrace-io/datatrace/internal/models"
	"github.com/datatrace-io/datatrace/internal/query"
)

const personColumns = "id, master_id, mobile, name, fname, address, alt, circle, email, created_at, updated_at"

// querySettings nudges the analytical store toward prewhere optimization on
// the 100M+ row people table.
const querySettings = " SETTINGS optimize_move_to_prewhere=1, allow_experimental_analyzer=1"

// PeopleRepository executes compiled predicates against the analytical store.
type PeopleRepository struct {
	conn     driver.Conn
	database string
}

func NewPeopleRepository(ch *database.ClickHouse) *PeopleRepository {
	return &PeopleRepository{conn: ch.Conn, database: ch.Database}
}

// Search runs a paginated row fetch ordered by (mobile, name) for
// deterministic paging.
func (r *PeopleRepository) Search(ctx context.Context, pred *query.Predicate, limit, offset int) ([]models.Person, error) {
	where, args := pred.SQL()

	q := fmt.Sprintf("SELECT %s FROM %s.people WHERE %s ORDER BY mobile, name", personColumns, r.database, where)
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		q += fmt.Sprintf(" OFFSET %d", offset)
	}
	q += querySettings

	var results []models.Person
	if err := r.conn.Select(ctx, &results, q, args...); err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	return results, nil
}

// Count runs the unpaginated count for the same predicate. Callers must never
// derive totals from page length when this succeeds.
func (r *PeopleRepository) Count(ctx context.Context, pred *query.Predicate) (int, error) {
	where, args := pred.SQL()
	q := fmt.Sprintf("SELECT count() FROM %s.people WHERE %s%s", r.database, where, querySettings)

	var total uint64
	if err := r.conn.QueryRow(ctx, q, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return int(total), nil
}

// AllMatches fetches every matching row ordered by (mobile, name). Used by the
// direct-match phase of the mobile expansion and by exports.
func (r *PeopleRepository) AllMatches(ctx context.Context, pred *query.Predicate) ([]models.Person, error) {
	return r.Search(ctx, pred, 0, 0)
}

// MasterOrderedMatches fetches every matching row ordered by
// (master_id, mobile, name), grouping expansion results by identity.
func (r *PeopleRepository) MasterOrderedMatches(ctx context.Context, pred *query.Predicate) ([]models.Person, error) {
	where, args := pred.SQL()
	q := fmt.Sprintf("SELECT %s FROM %s.people WHERE %s ORDER BY master_id, mobile, name%s",
		personColumns, r.database, where, querySettings)

	var results []models.Person
	if err := r.conn.Select(ctx, &results, q, args...); err != nil {
		return nil, fmt.Errorf("master id query failed: %w", err)
	}
	return results, nil
}

// GetByID fetches a single person row.
func (r *PeopleRepository) GetByID(ctx context.Context, id string) (*models.Person, error) {
	q := fmt.Sprintf("SELECT %s FROM %s.people WHERE id = ?", personColumns, r.database)

	var person models.Person
	if err := r.conn.QueryRow(ctx, q, id).ScanStruct(&person); err != nil {
		return nil, models.ErrNotFound
	}
	return &person, nil
}

// TotalRecords returns the full dataset size.
func (r *PeopleRepository) TotalRecords(ctx context.Context) (uint64, error) {
	var total uint64
	q := fmt.Sprintf("SELECT count() FROM %s.people", r.database)
	if err := r.conn.QueryRow(ctx, q).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return total, nil
}

// RecentPerformance returns average execution time and search volume over the
// last 24 hours.
func (r *PeopleRepository) RecentPerformance(ctx context.Context) (float64, int64, error) {
	q := fmt.Sprintf(`SELECT avg(execution_time_ms), count()
		FROM %s.search_performance
		WHERE timestamp >= now() - INTERVAL 1 DAY`, r.database)

	var avgTime float64
	var count int64
	if err := r.conn.QueryRow(ctx, q).Scan(&avgTime, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to read performance stats: %w", err)
	}
	return avgTime, count, nil
}

// LogPerformance records per-search metrics. Best effort; callers treat
// failures as non-fatal.
func (r *PeopleRepository) LogPerformance(ctx context.Context, queryID, userID, queryText string, executionTimeMs, resultCount int) error {
	q := fmt.Sprintf(`INSERT INTO %s.search_performance
		(query_id, user_id, query_text, execution_time_ms, result_count)
		VALUES (?, ?, ?, ?, ?)`, r.database)

	return r.conn.Exec(ctx, q, queryID, userID, queryText, uint32(executionTimeMs), uint32(resultCount))
}
