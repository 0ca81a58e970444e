package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// GetSetting returns the value stored under key and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if s == nil || s.sqlDB == nil {
		return "", false, fmt.Errorf("storage is not configured")
	}
	return getSetting(ctx, s.sqlDB, key)
}

func getSetting(ctx context.Context, q queryContexter, key string) (string, bool, error) {
	var value string
	err := q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func putSetting(ctx context.Context, exec execContexter, key, value string) error {
	_, err := exec.ExecContext(ctx, `
INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// SetDefaultTime stores the default time and reschedules open sessions.
func (s *Store) SetDefaultTime(ctx context.Context, value string, retime func(time.Time) time.Time) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("default time is required")
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := putSetting(ctx, tx, storage.SettingDefaultSessionTime, value); err != nil {
			return err
		}
		if retime == nil {
			return nil
		}

		schedules, err := loadSchedules(ctx, tx)
		if err != nil {
			return err
		}
		for id, scheduledAt := range schedules {
			next := retime(scheduledAt)
			if next.Equal(scheduledAt) {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE sessions SET scheduled_at = ? WHERE id = ?`,
				toMillis(next), id,
			); err != nil {
				return fmt.Errorf("retime session %s: %w", id, err)
			}
		}
		return nil
	})
}

func loadSchedules(ctx context.Context, q queryContexter) (map[string]time.Time, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, scheduled_at FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("list session schedules: %w", err)
	}
	defer rows.Close()

	schedules := make(map[string]time.Time)
	for rows.Next() {
		var (
			id          string
			scheduledAt int64
		)
		if err := rows.Scan(&id, &scheduledAt); err != nil {
			return nil, fmt.Errorf("scan session schedule: %w", err)
		}
		schedules[id] = fromMillis(scheduledAt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session schedules: %w", err)
	}
	return schedules, nil
}
