// Package domain holds the attendance rules that do not depend on storage:
// time-of-day parsing, the reference civil zone, the grace window that
// separates pending from expired sessions, and member name handling.
package domain
