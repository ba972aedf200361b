package model

import "regexp"

// ticketKey matches issue keys such as PROJ-123.
var ticketKey = regexp.MustCompile(`\b[A-Z][A-Z0-9]+-\d+\b`)

// TicketKeys returns the distinct issue keys mentioned in s, in order of first appearance.
func TicketKeys(s string) []string {
	matches := ticketKey.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	out := matches[:0]
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out
}
