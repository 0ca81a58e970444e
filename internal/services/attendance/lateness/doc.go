// Package lateness defines the narrow contract the sweep uses to record late
// members, plus the adapters that satisfy it.
//
// The sweep only ever asks for a counter to go up by one. Where the counter
// lives (a spreadsheet, a local table) is the adapter's business.
package lateness
