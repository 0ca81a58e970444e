package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ignitehq/attendance/internal/services/attendance/domain"
	"github.com/ignitehq/attendance/internal/services/attendance/storage"
)

// ListMembers returns roster names in collation order.
func (s *Service) ListMembers(ctx context.Context) ([]string, error) {
	members, err := s.store.ListMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	names := make([]string, 0, len(members))
	for _, member := range members {
		names = append(names, member.Name)
	}
	domain.SortNames(names)
	return names, nil
}

// ReplaceMembers makes the roster equal to names. Members still linked to an
// open session are kept.
func (s *Service) ReplaceMembers(ctx context.Context, names []string) (storage.RosterChange, error) {
	normalized, err := domain.NormalizeNames(names)
	if err != nil {
		return storage.RosterChange{}, err
	}

	change, err := s.store.ReplaceMembers(ctx, normalized)
	if err != nil {
		return storage.RosterChange{}, fmt.Errorf("replace members: %w", err)
	}
	if len(change.Retained) > 0 {
		log.Printf("roster kept %d members still linked to sessions: %s",
			len(change.Retained), strings.Join(change.Retained, ", "))
	}
	return change, nil
}
