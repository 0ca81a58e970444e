package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// IncrementLateCount adds one to name's late counter, creating it at 1.
func (s *Store) IncrementLateCount(ctx context.Context, name string, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("member name is required")
	}

	var count int
	err := s.sqlDB.QueryRowContext(ctx, `
INSERT INTO late_counts (name, count, updated_at) VALUES (?, 1, ?)
ON CONFLICT(name) DO UPDATE SET count = late_counts.count + 1, updated_at = excluded.updated_at
RETURNING count
`, name, toMillis(at)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment late count: %w", err)
	}
	return count, nil
}

// RecordFirstLate creates name's counter at 1 unless it already exists.
func (s *Store) RecordFirstLate(ctx context.Context, name string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("member name is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO late_counts (name, count, updated_at) VALUES (?, 1, ?)
ON CONFLICT(name) DO NOTHING
`, name, toMillis(at))
	if err != nil {
		return fmt.Errorf("record first late: %w", err)
	}
	return nil
}

// LateCounts returns every recorded late counter by name.
func (s *Store) LateCounts(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT name, count FROM late_counts`)
	if err != nil {
		return nil, fmt.Errorf("list late counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("scan late count: %w", err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate late counts: %w", err)
	}
	return counts, nil
}
