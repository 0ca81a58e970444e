// Package httpapi exposes attendance operations as a JSON HTTP API.
//
// Member-facing routes (viewing a session, opting out) are public. Roster,
// session and settings administration require the admin cookie issued by
// POST /login.
package httpapi
