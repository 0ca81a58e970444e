package domain

import (
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/ignitehq/attendance/internal/platform/errors"
)

// NormalizeName trims surrounding space and applies Unicode NFC so that the
// same Hangul name typed on different keyboards compares equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizeNames normalizes every name and drops duplicates, keeping the
// first occurrence. Empty names are rejected.
func NormalizeNames(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := NormalizeName(raw)
		if name == "" {
			return nil, apperrors.WithMetadata(apperrors.CodeValidation,
				"member name is empty",
				map[string]string{"Reason": "member names must not be empty"},
			)
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// SortNames orders names in place with a Korean collator, which also orders
// Latin names alphabetically.
func SortNames(names []string) {
	collate.New(language.Korean).SortStrings(names)
}
