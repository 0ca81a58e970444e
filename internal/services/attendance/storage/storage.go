package storage

import (
	"context"
	"time"

	"github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New(errors.CodeNotFound, "record not found")

// Setting keys.
const (
	SettingDefaultSessionTime = "default_session_time"
	SettingCurrentSessionID   = "current_session_id"
)

// SettingsStore persists key/value configuration rows.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	// SetDefaultTime upserts the default time and rewrites every open
	// session's schedule with retime in the same transaction.
	SetDefaultTime(ctx context.Context, value string, retime func(time.Time) time.Time) error
}

// RosterChange summarizes a roster replacement.
type RosterChange struct {
	Added    int
	Removed  int
	Retained []string
}

// RosterStore persists members.
type RosterStore interface {
	ListMembers(ctx context.Context) ([]domain.Member, error)
	GetMember(ctx context.Context, name string) (domain.Member, error)
	// ReplaceMembers makes the roster equal to names, except that members still
	// linked to a session are kept and reported in RosterChange.Retained.
	ReplaceMembers(ctx context.Context, names []string) (RosterChange, error)
}

// NewSession describes a session to insert.
type NewSession struct {
	ID          string
	ScheduledAt time.Time
	CreatedAt   time.Time
}

// SessionStore persists sessions and their memberships.
type SessionStore interface {
	// CreateSession inserts the session, links every roster member, and makes
	// it the current session.
	CreateSession(ctx context.Context, session NewSession) error
	ListSessions(ctx context.Context) ([]domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	// DeleteMembership removes one link and reports whether it existed.
	DeleteMembership(ctx context.Context, sessionID string, memberID int64) (bool, error)
}

// SweepCommit is the mutation applied at the end of a sweep.
type SweepCommit struct {
	ExpiredIDs []string
	// Successor is inserted when at least one expired session was deleted or
	// no sessions existed. Nil disables creation.
	Successor *NewSession
}

// SweepOutcome reports what a committed sweep changed.
type SweepOutcome struct {
	Deleted int
	Created int
}

// SweepStore persists sweep coordination state.
type SweepStore interface {
	// AcquireSweepLease takes the lease for owner until expiresAt. It returns
	// false when another owner holds an unexpired lease.
	AcquireSweepLease(ctx context.Context, owner string, now, expiresAt time.Time) (bool, error)
	ReleaseSweepLease(ctx context.Context, owner string) error
	// ReportedMembers lists names already reported late for a session.
	ReportedMembers(ctx context.Context, sessionID string) (map[string]bool, error)
	MarkReported(ctx context.Context, sessionID, name string, at time.Time) error
	CommitSweep(ctx context.Context, commit SweepCommit) (SweepOutcome, error)
}

// Store is the full persistence surface used by the attendance service.
type Store interface {
	SettingsStore
	RosterStore
	SessionStore
	SweepStore
}
