package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
	"github.com/ignitehq/attendance/internal/platform/errors/i18n"
	"github.com/ignitehq/attendance/internal/platform/requestctx"
)

const maxBodyBytes = 64 << 10

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	Status string `json:"status"`
}

// writeJSON writes JSON responses with a consistent content type.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// writeError maps err to its HTTP status and a localized message. Details of
// unexpected errors only reach the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.GetCode(err)
	status := code.HTTPStatus()

	var metadata map[string]string
	if domainErr, ok := apperrors.As(err); ok {
		metadata = domainErr.Metadata
	}
	if status >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}

	locale := requestctx.LocaleFromContext(r.Context())
	if locale == "" {
		locale = i18n.MatchLocale(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	}
	writeJSON(w, status, errorResponse{Error: i18n.GetCatalog(locale).Format(string(code), metadata)})
}

func invalidRequest(reason string) error {
	return apperrors.WithMetadata(apperrors.CodeValidation, reason, map[string]string{"Reason": reason})
}

// decodeJSON reads a bounded JSON body into target.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidRequest("request body is required")
		}
		return apperrors.WithMetadata(apperrors.CodeValidation,
			fmt.Sprintf("decode body: %v", err),
			map[string]string{"Reason": "invalid JSON body"},
		)
	}
	return nil
}
