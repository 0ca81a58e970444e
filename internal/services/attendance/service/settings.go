package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// GetDefaultTime returns the configured default session time, or 16:05 when
// none is stored.
func (s *Service) GetDefaultTime(ctx context.Context) (domain.TimeOfDay, error) {
	value, ok, err := s.store.GetSetting(ctx, storage.SettingDefaultSessionTime)
	if err != nil {
		return domain.TimeOfDay{}, fmt.Errorf("load default time: %w", err)
	}
	if !ok {
		return domain.DefaultSessionTime, nil
	}
	at, err := domain.ParseTimeOfDay(value)
	if err != nil {
		log.Printf("stored default time %q is invalid, using %s", value, domain.DefaultSessionTime)
		return domain.DefaultSessionTime, nil
	}
	return at, nil
}

// SetDefaultTime stores value as HH:MM and moves every open session to the
// new time of day, keeping each session's civil date.
func (s *Service) SetDefaultTime(ctx context.Context, value string) (domain.TimeOfDay, error) {
	at, err := domain.ParseTimeOfDay(value)
	if err != nil {
		return domain.TimeOfDay{}, err
	}

	err = s.store.SetDefaultTime(ctx, at.String(), func(scheduledAt time.Time) time.Time {
		return domain.Retime(scheduledAt, at, s.zone).UTC()
	})
	if err != nil {
		return domain.TimeOfDay{}, fmt.Errorf("set default time: %w", err)
	}
	return at, nil
}
