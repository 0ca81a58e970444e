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

// ListMembers returns the roster in insertion order.
func (s *Store) ListMembers(ctx context.Context) ([]domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	return listMembers(ctx, s.sqlDB)
}

func listMembers(ctx context.Context, q queryContexter) ([]domain.Member, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name FROM members ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		var member domain.Member
		if err := rows.Scan(&member.ID, &member.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

// GetMember looks up a member by exact name.
func (s *Store) GetMember(ctx context.Context, name string) (domain.Member, error) {
	if err := ctx.Err(); err != nil {
		return domain.Member{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Member{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(name) == "" {
		return domain.Member{}, fmt.Errorf("member name is required")
	}

	member := domain.Member{Name: name}
	err := s.sqlDB.QueryRowContext(ctx, `SELECT id FROM members WHERE name = ?`, name).Scan(&member.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Member{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// ReplaceMembers makes the roster match names in one transaction. Members that
// still have a session membership are never deleted.
func (s *Store) ReplaceMembers(ctx context.Context, names []string) (storage.RosterChange, error) {
	if s == nil || s.sqlDB == nil {
		return storage.RosterChange{}, fmt.Errorf("storage is not configured")
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return storage.RosterChange{}, fmt.Errorf("member name is required")
		}
	}

	var change storage.RosterChange
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := listMembers(ctx, tx)
		if err != nil {
			return err
		}

		wanted := make(map[string]bool, len(names))
		for _, name := range names {
			wanted[name] = true
		}
		existing := make(map[string]bool, len(current))
		for _, member := range current {
			existing[member.Name] = true
		}

		for _, name := range names {
			if existing[name] {
				continue
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO members (name) VALUES (?)`, name); err != nil {
				return fmt.Errorf("insert member %q: %w", name, err)
			}
			existing[name] = true
			change.Added++
		}

		for _, member := range current {
			if wanted[member.Name] {
				continue
			}
			referenced, err := memberReferenced(ctx, tx, member.ID)
			if err != nil {
				return err
			}
			if referenced {
				change.Retained = append(change.Retained, member.Name)
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, member.ID); err != nil {
				return fmt.Errorf("delete member %q: %w", member.Name, err)
			}
			change.Removed++
		}
		return nil
	})
	if err != nil {
		return storage.RosterChange{}, err
	}
	return change, nil
}

func memberReferenced(ctx context.Context, q queryContexter, memberID int64) (bool, error) {
	var referenced int
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM session_members WHERE member_id = ?)`,
		memberID,
	).Scan(&referenced)
	if err != nil {
		return false, fmt.Errorf("check member references: %w", err)
	}
	return referenced == 1, nil
}
