package httpapi

import (
	"log"
	"net/http"

	"github.com/ignitehq/attendance/internal/platform/requestctx"
)

type replaceMembersRequest struct {
	Members *[]string `json:"members"`
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	names, err := s.attendance.ListMembers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleReplaceMembers(w http.ResponseWriter, r *http.Request) {
	var req replaceMembersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Members == nil {
		writeError(w, r, invalidRequest("members is required"))
		return
	}

	change, err := s.attendance.ReplaceMembers(r.Context(), *req.Members)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("roster replaced by admin token %s: %d added, %d removed, %d retained",
		requestctx.AdminTokenIDFromContext(r.Context()), change.Added, change.Removed, len(change.Retained))
	writeJSON(w, http.StatusOK, statusResponse{Status: "updated"})
}
