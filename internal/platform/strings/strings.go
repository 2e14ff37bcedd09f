// Package strings has small string helpers shared by adapters and config
package strings

import std "strings"

// Ptr returns a pointer to s, or nil if s is empty
// Nullable columns use nil for "absent"
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns "" if ps is nil, else *ps
func Deref(ps *string) string {
	if ps == nil {
		return ""
	}
	return *ps
}

// SplitCSV splits a comma separated list, trimming items and dropping empty ones
// Returns nil when nothing is left
func SplitCSV(s string) []string {
	var out []string
	for _, p := range std.Split(s, ",") {
		if v := std.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
