// Package chunk splits oversized message bodies into platform-size parts
// while keeping fenced code blocks valid Markdown in every part.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Fence is the fenced code block marker
const Fence = "```"

// SplitAfter cuts s into pieces of at most limit bytes, preferring to cut
// at the last newline inside the window so lines stay intact.
func SplitAfter(s string, limit int) []string {
	if limit <= 0 || len(s) <= limit {
		return []string{s}
	}

	var parts []string
	for len(s) > limit {
		cut := limit
		if idx := strings.LastIndexByte(s[:limit], '\n'); idx > 0 {
			cut = idx + 1
		} else {
			// Hard cut: back off to a rune boundary so no part carries a
			// torn multi-byte character
			for cut > 0 && !utf8.RuneStart(s[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, s[:cut])
		s = s[cut:]
	}
	return append(parts, s)
}

// Chunk returns the parts of body ready for sending, each capped at limit
// and each independently balanced with respect to fenced code blocks: a
// part continuing a fence is re-opened at its start, a part leaving a
// fence open is closed at its end. limit must stay below the platform's
// hard message cap so the synthetic markers fit.
func Chunk(body string, limit int) []string {
	fixedFormat := strings.HasPrefix(body, Fence)
	parts := SplitAfter(body, limit)

	if len(parts) == 1 {
		// If we've got an open fenced block, close it out
		if strings.Count(parts[0], Fence)%2 != 0 {
			parts[0] += "\n" + Fence + "\n"
		}
		return parts
	}

	for i, part := range parts {
		startsWithCode := strings.HasPrefix(part, Fence)

		// If we're continuing a fenced block from the last part
		if fixedFormat && !startsWithCode {
			parts[i] = Fence + "\n" + part
		}

		// If we've got an open fenced block, close it out
		if strings.Count(parts[i], Fence)%2 != 0 {
			parts[i] += "\n" + Fence + "\n"
		}
	}
	return parts
}
