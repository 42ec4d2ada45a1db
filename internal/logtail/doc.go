// Package logtail reads the tail of the gsclient log file for the console.
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines, so it scans the file once and
// keeps O(maxLines) memory no matter how large the log grows:
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// A missing file is not an error; it simply yields no lines.
//
// # Parsing
//
// The log is written by zerolog as one JSON object per line. Parse splits a
// line into its timestamp, level, message and the remaining fields. Lines
// that are not JSON (a panic trace, for example) are kept verbatim in
// Message so nothing disappears from the log pane.
package logtail
