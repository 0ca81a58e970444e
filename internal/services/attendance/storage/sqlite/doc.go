// Package sqlite implements attendance persistence on SQLite.
//
// Every mutating operation runs in one immediate transaction so roster edits,
// session rollover and settings back-fills either commit together or not at all.
package sqlite
