package audit

// Package audit appends human-readable delivery rows for review.
//
// The log is write-only from the engine's perspective and strictly
// best-effort: a failed append never affects the send outcome, which is
// persisted independently in the send-state store.
//
// It currently supports:
//   - A CSV file with a fixed header (default)
//   - An optional SQLite database (build with -tags sqlite)
