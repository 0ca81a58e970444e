package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// AcquireSweepLease takes the single sweep lease row for owner. An expired
// lease held by someone else is taken over.
func (s *Store) AcquireSweepLease(ctx context.Context, owner string, now, expiresAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(owner) == "" {
		return false, fmt.Errorf("lease owner is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO sweep_lease (id, owner, expires_at) VALUES (1, ?1, ?2)
ON CONFLICT(id) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
WHERE sweep_lease.owner = ?1 OR sweep_lease.expires_at <= ?3
`, owner, toMillis(expiresAt), toMillis(now))
	if err != nil {
		return false, fmt.Errorf("acquire sweep lease: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire sweep lease rows: %w", err)
	}
	return affected > 0, nil
}

// ReleaseSweepLease drops the lease if owner still holds it.
func (s *Store) ReleaseSweepLease(ctx context.Context, owner string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sweep_lease WHERE id = 1 AND owner = ?`, owner); err != nil {
		return fmt.Errorf("release sweep lease: %w", err)
	}
	return nil
}

// ReportedMembers returns the names already reported late for a session.
func (s *Store) ReportedMembers(ctx context.Context, sessionID string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT member_name FROM lateness_reports WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list lateness reports: %w", err)
	}
	defer rows.Close()

	reported := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan lateness report: %w", err)
		}
		reported[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lateness reports: %w", err)
	}
	return reported, nil
}

// MarkReported records that name was reported late for a session.
func (s *Store) MarkReported(ctx context.Context, sessionID, name string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO lateness_reports (session_id, member_name, reported_at) VALUES (?, ?, ?)
ON CONFLICT(session_id, member_name) DO NOTHING
`, sessionID, name, toMillis(at))
	if err != nil {
		return fmt.Errorf("mark lateness report: %w", err)
	}
	return nil
}

// CommitSweep deletes expired sessions and inserts the successor in one
// transaction.
func (s *Store) CommitSweep(ctx context.Context, commit storage.SweepCommit) (storage.SweepOutcome, error) {
	if s == nil || s.sqlDB == nil {
		return storage.SweepOutcome{}, fmt.Errorf("storage is not configured")
	}
	if commit.Successor != nil {
		if err := validateNewSession(*commit.Successor); err != nil {
			return storage.SweepOutcome{}, err
		}
	}

	var outcome storage.SweepOutcome
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&existing); err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}

		for _, id := range commit.ExpiredIDs {
			result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
			if err != nil {
				return fmt.Errorf("delete session %s: %w", id, err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("delete session rows: %w", err)
			}
			outcome.Deleted += int(affected)
		}

		if _, err := tx.ExecContext(ctx, `
DELETE FROM settings
WHERE key = ? AND value NOT IN (SELECT id FROM sessions)
`, storage.SettingCurrentSessionID); err != nil {
			return fmt.Errorf("clear stale current session: %w", err)
		}

		if commit.Successor == nil || (outcome.Deleted == 0 && existing > 0) {
			return nil
		}

		var duplicate int
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM sessions WHERE scheduled_at = ?)`,
			toMillis(commit.Successor.ScheduledAt),
		).Scan(&duplicate); err != nil {
			return fmt.Errorf("check successor: %w", err)
		}
		if duplicate == 1 {
			return nil
		}

		if err := insertSession(ctx, tx, *commit.Successor); err != nil {
			return err
		}
		outcome.Created = 1
		return nil
	})
	if err != nil {
		return storage.SweepOutcome{}, err
	}
	return outcome, nil
}
