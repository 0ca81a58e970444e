package httpapi

import (
	"log"
	"net/http"
	"strings"

	"github.com/ignitehq/attendance/internal/platform/requestctx"
)

type defaultTimeRequest struct {
	Time string `json:"time"`
}

type defaultTimeResponse struct {
	Time    string `json:"time"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleGetDefaultTime(w http.ResponseWriter, r *http.Request) {
	at, err := s.attendance.GetDefaultTime(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, defaultTimeResponse{Time: at.String()})
}

func (s *Server) handleSetDefaultTime(w http.ResponseWriter, r *http.Request) {
	var req defaultTimeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Time) == "" {
		writeError(w, r, invalidRequest("time is required"))
		return
	}

	at, err := s.attendance.SetDefaultTime(r.Context(), req.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("default session time set to %s by admin token %s", at, requestctx.AdminTokenIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, defaultTimeResponse{
		Time:    at.String(),
		Message: "default session time updated and all sessions updated",
	})
}
