package logging

import "strconv"

// MaxLogFieldLength bounds the size of free-form string fields (command
// output, mostly) attached to log entries.
const MaxLogFieldLength = 1024

// Truncate shortens s to MaxLogFieldLength, appending an ellipsis when
// anything was cut.
func Truncate(s string) string {
	return TruncateN(s, MaxLogFieldLength)
}

// TruncateN shortens s to at most n characters, appending an ellipsis when
// anything was cut.
func TruncateN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// TruncateSlice caps a string slice at maxItems entries, appending a
// "... and N more" marker for the dropped tail.
func TruncateSlice(items []string, maxItems int) []string {
	if len(items) <= maxItems {
		return items
	}
	out := make([]string, 0, maxItems+1)
	out = append(out, items[:maxItems]...)
	return append(out, "... and "+strconv.Itoa(len(items)-maxItems)+" more")
}
