package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// CreateSession inserts a session linked to the whole roster and points the
// current-session setting at it.
func (s *Store) CreateSession(ctx context.Context, session storage.NewSession) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := validateNewSession(session); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertSession(ctx, tx, session)
	})
}

func validateNewSession(session storage.NewSession) error {
	if strings.TrimSpace(session.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if session.ScheduledAt.IsZero() {
		return fmt.Errorf("session scheduled time is required")
	}
	return nil
}

func insertSession(ctx context.Context, exec execContexter, session storage.NewSession) error {
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO sessions (id, scheduled_at, created_at) VALUES (?, ?, ?)`,
		session.ID, toMillis(session.ScheduledAt), toMillis(session.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if _, err := exec.ExecContext(ctx,
		`INSERT INTO session_members (session_id, member_id) SELECT ?, id FROM members`,
		session.ID,
	); err != nil {
		return fmt.Errorf("link session members: %w", err)
	}
	return putSetting(ctx, exec, storage.SettingCurrentSessionID, session.ID)
}

// ListSessions returns every open session ordered by scheduled time.
func (s *Store) ListSessions(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, scheduled_at FROM sessions ORDER BY scheduled_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]domain.Session, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			session     domain.Session
			scheduledAt int64
		)
		if err := rows.Scan(&session.ID, &scheduledAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session.ScheduledAt = fromMillis(scheduledAt)
		session.Members = make([]string, 0)
		index[session.ID] = len(sessions)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	memberRows, err := s.sqlDB.QueryContext(ctx, `
SELECT sm.session_id, m.name
FROM session_members sm
JOIN members m ON m.id = sm.member_id
ORDER BY m.id
`)
	if err != nil {
		return nil, fmt.Errorf("list session members: %w", err)
	}
	defer memberRows.Close()
	for memberRows.Next() {
		var sessionID, name string
		if err := memberRows.Scan(&sessionID, &name); err != nil {
			return nil, fmt.Errorf("scan session member: %w", err)
		}
		if i, ok := index[sessionID]; ok {
			sessions[i].Members = append(sessions[i].Members, name)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session members: %w", err)
	}
	return sessions, nil
}

// GetSession returns one session with its linked member names.
func (s *Store) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Session{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(id) == "" {
		return domain.Session{}, fmt.Errorf("session id is required")
	}

	session := domain.Session{ID: id, Members: make([]string, 0)}
	var scheduledAt int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT scheduled_at FROM sessions WHERE id = ?`, id).Scan(&scheduledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	session.ScheduledAt = fromMillis(scheduledAt)

	names, err := sessionMemberNames(ctx, s.sqlDB, id)
	if err != nil {
		return domain.Session{}, err
	}
	session.Members = append(session.Members, names...)
	return session, nil
}

func sessionMemberNames(ctx context.Context, q queryContexter, sessionID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
SELECT m.name
FROM session_members sm
JOIN members m ON m.id = sm.member_id
WHERE sm.session_id = ?
ORDER BY m.id
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session members: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan session member: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session members: %w", err)
	}
	return names, nil
}

// DeleteMembership unlinks one member from a session.
func (s *Store) DeleteMembership(ctx context.Context, sessionID string, memberID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM session_members WHERE session_id = ? AND member_id = ?`,
		sessionID, memberID,
	)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete membership rows: %w", err)
	}
	return affected > 0, nil
}
