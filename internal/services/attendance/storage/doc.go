// Package storage defines persistence contracts for attendance state.
//
// The service layer depends on these interfaces so session rules stay free of
// SQLite schema details.
package storage
