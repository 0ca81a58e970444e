package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// Opt-out kinds recorded in metrics.
const (
	removalMember = "member"
	removalAdmin  = "admin"
)

func sessionNotFound(id string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		fmt.Sprintf("session %q not found", id),
		map[string]string{"Resource": "session"},
	)
}

func memberNotFound(name string) error {
	return apperrors.WithMetadata(apperrors.CodeNotFound,
		fmt.Sprintf("member %q not found", name),
		map[string]string{"Resource": "member"},
	)
}

func nameRequired() error {
	return apperrors.WithMetadata(apperrors.CodeValidation, "name is required",
		map[string]string{"Reason": "name is required"},
	)
}

// CreateSession schedules a session at a civil date and time in the service
// zone, links the whole roster, and makes it the current session.
func (s *Service) CreateSession(ctx context.Context, date, at string) (domain.Session, error) {
	tod, err := domain.ParseTimeOfDay(at)
	if err != nil {
		return domain.Session{}, err
	}
	scheduledAt, err := domain.ScheduleAt(date, tod, s.zone)
	if err != nil {
		return domain.Session{}, err
	}

	sessionID, err := s.newID()
	if err != nil {
		return domain.Session{}, err
	}
	if err := s.store.CreateSession(ctx, storage.NewSession{
		ID:          sessionID,
		ScheduledAt: scheduledAt.UTC(),
		CreatedAt:   s.now(),
	}); err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	s.metrics.SessionCreated()

	return s.GetSession(ctx, sessionID)
}

// ListSessions returns every open session ordered by scheduled time.
func (s *Service) ListSessions(ctx context.Context) ([]domain.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetSession returns one open session.
func (s *Service) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.Session{}, sessionNotFound(sessionID)
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Session{}, sessionNotFound(sessionID)
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ActiveSession resolves the session members interact with: the current
// session pointer when it is still open, otherwise the soonest session whose
// window is open, otherwise the latest open session.
func (s *Service) ActiveSession(ctx context.Context) (domain.Session, error) {
	current, ok, err := s.store.GetSetting(ctx, storage.SettingCurrentSessionID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load current session: %w", err)
	}
	if ok {
		session, err := s.store.GetSession(ctx, current)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return domain.Session{}, fmt.Errorf("get current session: %w", err)
		}
	}

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	if len(sessions) == 0 {
		return domain.Session{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			"no open session", map[string]string{"Resource": "session"})
	}
	now := s.now()
	for _, session := range sessions {
		if session.AcceptsOptOut(now) {
			return session, nil
		}
	}
	return sessions[len(sessions)-1], nil
}

// OptOut removes name from a session while its window is open. Removing a
// member who already opted out succeeds without change.
func (s *Service) OptOut(ctx context.Context, sessionID, name string) error {
	session, member, err := s.resolveMembership(ctx, sessionID, name)
	if err != nil {
		return err
	}
	if !session.AcceptsOptOut(s.now()) {
		return apperrors.New(apperrors.CodeAttendanceWindowClosed, "attendance window has closed")
	}

	removed, err := s.store.DeleteMembership(ctx, session.ID, member.ID)
	if err != nil {
		return fmt.Errorf("opt out: %w", err)
	}
	if removed {
		s.metrics.OptOut(removalMember)
	}
	return nil
}

// OptOutActive opts name out of the active session.
func (s *Service) OptOutActive(ctx context.Context, name string) error {
	session, err := s.ActiveSession(ctx)
	if err != nil {
		return err
	}
	return s.OptOut(ctx, session.ID, name)
}

// AdminRemove removes name from a session regardless of the window.
func (s *Service) AdminRemove(ctx context.Context, sessionID, name string) error {
	session, member, err := s.resolveMembership(ctx, sessionID, name)
	if err != nil {
		return err
	}

	removed, err := s.store.DeleteMembership(ctx, session.ID, member.ID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if !removed {
		return apperrors.WithMetadata(apperrors.CodeMembershipNotFound,
			fmt.Sprintf("member %q is not in session %s", member.Name, session.ID),
			map[string]string{"Name": member.Name},
		)
	}
	s.metrics.OptOut(removalAdmin)
	return nil
}

// AdminRemoveActive force-removes name from the active session.
func (s *Service) AdminRemoveActive(ctx context.Context, name string) error {
	session, err := s.ActiveSession(ctx)
	if err != nil {
		return err
	}
	return s.AdminRemove(ctx, session.ID, name)
}

func (s *Service) resolveMembership(ctx context.Context, sessionID, name string) (domain.Session, domain.Member, error) {
	name = domain.NormalizeName(name)
	if name == "" {
		return domain.Session{}, domain.Member{}, nameRequired()
	}

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, domain.Member{}, err
	}
	member, err := s.store.GetMember(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return domain.Session{}, domain.Member{}, memberNotFound(name)
	}
	if err != nil {
		return domain.Session{}, domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return session, member, nil
}
