package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/platform/timeouts"
)

type cleanResponse struct {
	Status          string `json:"status"`
	SessionsDeleted int    `json:"sessions_deleted"`
	SessionsCreated int    `json:"sessions_created"`
	LateReported    int    `json:"late_reported"`
}

func (s *Server) handleClean(w http.ResponseWriter, r *http.Request) {
	if s.config.CleanToken != "" && !s.cleanAuthorized(r) {
		writeError(w, r, apperrors.New(apperrors.CodeUnauthorized, "clean token is missing or invalid"))
		return
	}

	// A client hanging up must not abandon a sweep between reporting a
	// member and committing the rollover.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Request)
	defer cancel()
	result, err := s.attendance.Sweep(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cleanResponse{
		Status:          "cleaned",
		SessionsDeleted: result.Deleted,
		SessionsCreated: result.Created,
		LateReported:    result.LateReported,
	})
}

func (s *Server) cleanAuthorized(r *http.Request) bool {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.config.CleanToken)) == 1
}
