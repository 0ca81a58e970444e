package httpapi

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ignitehq/attendance/internal/platform/requestctx"
	"github.com/ignitehq/attendance/internal/services/attendance/domain"
)

type sessionResponse struct {
	ID       string   `json:"id"`
	Datetime string   `json:"datetime"`
	Members  []string `json:"members"`
}

type createSessionRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type nameRequest struct {
	Name string `json:"name"`
}

func toSessionResponse(session domain.Session, zone *time.Location) sessionResponse {
	members := session.Members
	if members == nil {
		members = []string{}
	}
	return sessionResponse{
		ID:       session.ID,
		Datetime: session.ScheduledAt.In(zone).Format(time.RFC3339),
		Members:  members,
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		writeError(w, r, invalidRequest("date and time are required"))
		return
	}

	session, err := s.attendance.CreateSession(r.Context(), req.Date, req.Time)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session, s.attendance.Zone()))
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.attendance.ListSessions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	zone := s.attendance.Zone()
	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, toSessionResponse(session, zone))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.attendance.ActiveSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session, s.attendance.Zone()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.attendance.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session, s.attendance.Zone()))
}

func (s *Server) handleOptOutActive(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.attendance.OptOutActive(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "removed"})
}

func (s *Server) handleOptOut(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.attendance.OptOut(r.Context(), r.PathValue("id"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "removed"})
}

func (s *Server) handleAdminRemove(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.attendance.AdminRemoveActive(r.Context(), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("admin token %s removed %q from the active session", requestctx.AdminTokenIDFromContext(r.Context()), req.Name)
	writeJSON(w, http.StatusOK, statusResponse{Status: "removed"})
}
