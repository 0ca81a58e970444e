// Package requestctx carries per-request values set by HTTP middleware.
package requestctx

import "context"

type adminTokenIDContextKey struct{}

type localeContextKey struct{}

// WithAdminTokenID stores the id of a validated admin token in context.
func WithAdminTokenID(ctx context.Context, tokenID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminTokenIDContextKey{}, tokenID)
}

// AdminTokenIDFromContext returns the admin token id stored in context.
func AdminTokenIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(adminTokenIDContextKey{}).(string)
	return value
}

// WithLocale stores the negotiated response locale.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the negotiated locale, or "" when unset.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(localeContextKey{}).(string)
	return value
}
