// Package timeouts defines shared timeout constants used across commands.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Request caps the time allowed for one HTTP request, including the
// spreadsheet calls a sweep makes.
const Request = 60 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SheetsCall caps a single spreadsheet API call.
const SheetsCall = 10 * time.Second

// SweepLease is how long a sweep holds its lease before another sweep may
// take over. It must exceed the worst-case sweep duration.
const SweepLease = 2 * time.Minute
