package prompt

import (
	"strings"

	"github.com/crimson-sun/standup/internal/model"
)

const noTicketRefs = "No ticket references found."

// TicketRef is one ticket key and every source that mentions it.
type TicketRef struct {
	Key     string
	Status  string // from the tracker, when the ticket itself is in the bundle
	Summary string
	Sources []model.Source
}

// Correlate collects ticket keys from identifiers, record text and the
// "ticket" metadata field, in order of first appearance in the bundle.
func Correlate(b model.Bundle) []TicketRef {
	var refs []*TicketRef
	byKey := make(map[string]*TicketRef)

	get := func(key string) *TicketRef {
		if ref, ok := byKey[key]; ok {
			return ref
		}
		ref := &TicketRef{Key: key}
		byKey[key] = ref
		refs = append(refs, ref)
		return ref
	}
	mention := func(ref *TicketRef, src model.Source) {
		for _, s := range ref.Sources {
			if s == src {
				return
			}
		}
		ref.Sources = append(ref.Sources, src)
	}

	for _, r := range b.Records() {
		keys := model.TicketKeys(r.Identifier() + " " + r.Text() + " " + r.MetadataValue("ticket"))
		if r.Source() == model.SourceTicket && r.Identifier() != "" {
			ref := get(r.Identifier())
			ref.Status = r.MetadataValue("status")
			ref.Summary = r.Text()
			mention(ref, r.Source())
		}
		for _, k := range keys {
			mention(get(k), r.Source())
		}
	}

	out := make([]TicketRef, len(refs))
	for i, ref := range refs {
		out[i] = *ref
	}
	return out
}

// TicketWork renders Correlate as one line per ticket.
func TicketWork(b model.Bundle) string {
	refs := Correlate(b)
	if len(refs) == 0 {
		return noTicketRefs
	}
	lines := make([]string, 0, len(refs))
	for _, ref := range refs {
		var sb strings.Builder
		sb.WriteString("- " + ref.Key)
		if ref.Status != "" {
			sb.WriteString(" (" + ref.Status + ")")
		}
		if ref.Summary != "" {
			sb.WriteString(" " + ref.Summary)
		}
		srcs := make([]string, len(ref.Sources))
		for i, s := range ref.Sources {
			srcs[i] = string(s)
		}
		sb.WriteString("; mentioned in: " + strings.Join(srcs, ", "))
		lines = append(lines, sb.String())
	}
	return strings.Join(lines, "\n")
}
