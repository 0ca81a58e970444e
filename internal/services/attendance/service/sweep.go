package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/observability"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// SweepResult reports what one sweep changed.
type SweepResult struct {
	Deleted      int
	Created      int
	LateReported int
}

func sweepInProgress() error {
	return apperrors.New(apperrors.CodeSweepInProgress, "sweep already in progress")
}

// Sweep closes expired sessions and schedules the next one.
//
// Members still linked to an expired session are reported late first. If any
// report fails nothing is deleted and the error carries
// LATENESS_REPORT_FAILED; members reported before the failure are marked so a
// retry does not count them twice. Deletion of expired sessions and creation
// of the successor commit together.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	ctx, span := tracer.Start(ctx, "attendance.sweep")
	defer span.End()
	started := s.clock.Now()

	result, err := s.sweepLocked(ctx)
	switch {
	case err == nil:
		s.metrics.ObserveSweep(observability.SweepOK, result.Deleted, result.Created, s.clock.Since(started))
		span.SetAttributes(
			attribute.Int("attendance.sweep.deleted", result.Deleted),
			attribute.Int("attendance.sweep.created", result.Created),
			attribute.Int("attendance.sweep.late_reported", result.LateReported),
		)
	case apperrors.HasCode(err, apperrors.CodeSweepInProgress):
		s.metrics.ObserveSweep(observability.SweepConflict, 0, 0, 0)
		span.SetStatus(codes.Error, err.Error())
	default:
		s.metrics.ObserveSweep(observability.SweepFailed, 0, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

func (s *Service) sweepLocked(ctx context.Context) (SweepResult, error) {
	if !s.sweepMu.TryLock() {
		return SweepResult{}, sweepInProgress()
	}
	defer s.sweepMu.Unlock()

	owner, err := s.newID()
	if err != nil {
		return SweepResult{}, err
	}
	now := s.now()
	acquired, err := s.store.AcquireSweepLease(ctx, owner, now, now.Add(s.leaseTTL))
	if err != nil {
		return SweepResult{}, fmt.Errorf("acquire sweep lease: %w", err)
	}
	if !acquired {
		return SweepResult{}, sweepInProgress()
	}
	defer func() {
		if err := s.store.ReleaseSweepLease(context.WithoutCancel(ctx), owner); err != nil {
			log.Printf("release sweep lease: %v", err)
		}
	}()

	return s.sweep(ctx, now)
}

func (s *Service) sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	sessions, err := s.ListSessions(ctx)
	if err != nil {
		return result, err
	}
	expired, _ := domain.PartitionExpired(sessions, now)

	expiredIDs := make([]string, 0, len(expired))
	for _, session := range expired {
		reported, err := s.reportLate(ctx, session)
		result.LateReported += reported
		if err != nil {
			return result, err
		}
		expiredIDs = append(expiredIDs, session.ID)
	}

	commit := storage.SweepCommit{ExpiredIDs: expiredIDs}
	if len(expired) > 0 || len(sessions) == 0 {
		successor, err := s.successor(ctx, now)
		if err != nil {
			return result, err
		}
		commit.Successor = &successor
	}

	outcome, err := s.store.CommitSweep(ctx, commit)
	if err != nil {
		return result, fmt.Errorf("commit sweep: %w", err)
	}
	result.Deleted = outcome.Deleted
	result.Created = outcome.Created
	log.Printf("sweep deleted %d sessions, created %d, reported %d late", result.Deleted, result.Created, result.LateReported)
	return result, nil
}

// reportLate reports every member still linked to an expired session who has
// not been reported for it yet.
func (s *Service) reportLate(ctx context.Context, session domain.Session) (int, error) {
	reported, err := s.store.ReportedMembers(ctx, session.ID)
	if err != nil {
		return 0, fmt.Errorf("load lateness reports: %w", err)
	}

	count := 0
	for _, name := range session.Members {
		if reported[name] {
			continue
		}
		total, err := s.reporter.IncrementLateCount(ctx, name)
		s.metrics.LateReport(err)
		if err != nil {
			log.Printf("report %q late for session %s: %v", name, session.ID, err)
			return count, apperrors.Wrap(apperrors.CodeLatenessReportFailed,
				fmt.Sprintf("report %q late", name), err)
		}
		// The counter is already incremented; the mark must land even if ctx
		// was cancelled meanwhile, or a retry counts the member twice.
		if err := s.store.MarkReported(context.WithoutCancel(ctx), session.ID, name, s.now()); err != nil {
			return count, fmt.Errorf("mark %q reported: %w", name, err)
		}
		count++
		log.Printf("reported %q late for session %s, total %d", name, session.ID, total)
	}
	return count, nil
}

func (s *Service) successor(ctx context.Context, now time.Time) (storage.NewSession, error) {
	at, err := s.GetDefaultTime(ctx)
	if err != nil {
		return storage.NewSession{}, err
	}
	sessionID, err := s.newID()
	if err != nil {
		return storage.NewSession{}, err
	}
	return storage.NewSession{
		ID:          sessionID,
		ScheduledAt: domain.NextOccurrence(now, s.weekday, at, s.zone).UTC(),
		CreatedAt:   now,
	}, nil
}
