// Package i18n provides internationalization support for error messages.
package i18n

import (
	"bytes"
	"maps"
	"strings"
	"text/template"

	"golang.org/x/text/language"
)

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

// Catalog maps error codes to message templates for a specific locale.
// Validation reasons are written in English at the call site; reasons maps
// them to this locale's wording.
type Catalog struct {
	messages map[Code]string
	reasons  map[string]string
}

var (
	catalogs = map[string]*Catalog{
		"en-US": NewCatalog(enUSMessages, nil),
		"ko-KR": NewCatalog(koKRMessages, koKRReasons),
	}

	supportedTags = []language.Tag{language.AmericanEnglish, language.Korean}
	matcher       = language.NewMatcher(supportedTags)
)

// GetCatalog returns the catalog for the given locale.
// Falls back to en-US if the locale is not found.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = BaseLocale
	}
	if c, ok := catalogs[requested]; ok {
		return c
	}
	return catalogs[BaseLocale]
}

// MatchLocale picks the supported locale that best fits the explicit
// language value, then the Accept-Language header.
func MatchLocale(explicit, acceptLanguage string) string {
	if value := strings.TrimSpace(explicit); value != "" {
		if tag, err := language.Parse(value); err == nil {
			return localeForTag(tag)
		}
	}
	if value := strings.TrimSpace(acceptLanguage); value != "" {
		if tags, _, err := language.ParseAcceptLanguage(value); err == nil && len(tags) > 0 {
			return localeForTag(tags...)
		}
	}
	return BaseLocale
}

func localeForTag(tags ...language.Tag) string {
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return BaseLocale
	}
	switch supportedTags[index] {
	case language.Korean:
		return "ko-KR"
	default:
		return BaseLocale
	}
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}
	metadata = c.localizeReason(metadata)

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// localizeReason returns metadata with Reason replaced by its translation.
// The caller's map is never modified.
func (c *Catalog) localizeReason(metadata map[string]string) map[string]string {
	out := make(map[string]string, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	if translated, ok := c.reasons[out["Reason"]]; ok {
		out["Reason"] = translated
	}
	return out
}

// NewCatalog creates a catalog from message templates and optional reason
// translations keyed by the English reason.
func NewCatalog(messages map[Code]string, reasons map[string]string) *Catalog {
	return &Catalog{
		messages: maps.Clone(messages),
		reasons:  maps.Clone(reasons),
	}
}
