package prompt

import (
	"errors"
	"strings"

	"github.com/crimson-sun/standup/internal/model"
)

// NoEvidence is the evidence text of an empty bundle.
const NoEvidence = "No evidence recorded."

// noneRecorded fills a per-source placeholder whose source has no records.
const noneRecorded = "None recorded."

// ErrEmptyTemplate is returned by Render for a blank instruction template.
var ErrEmptyTemplate = errors.New("prompt: empty instruction template")

var sectionTitles = map[model.Source]string{
	model.SourceTicket:    "Tickets",
	model.SourceCommit:    "Commits",
	model.SourceActivity:  "Activity",
	model.SourceTimeEntry: "Time tracking",
	model.SourceNote:      "Notes",
}

// Per-source placeholders, in a fixed order so the replacer is deterministic.
var sourcePlaceholders = []struct {
	source model.Source
	key    string
}{
	{model.SourceTicket, "{tickets}"},
	{model.SourceCommit, "{commits}"},
	{model.SourceActivity, "{activity}"},
	{model.SourceTimeEntry, "{time_entries}"},
	{model.SourceNote, "{notes}"},
}

// Render substitutes the bundle into template. Supported placeholders:
//
//	{evidence}      every section, in bundle order
//	{range}         "YYYY-MM-DD to YYYY-MM-DD"
//	{yesterday}     first day of the range
//	{today}         last day of the range
//	{ticket_work}   ticket keys cross-referenced across sources
//	{tickets} {commits} {activity} {time_entries} {notes}
//	                the records of one source
//
// A template without {evidence} or a per-source placeholder gets the evidence
// appended after a blank line. Placeholders are only expanded in the template,
// never inside evidence text. Render is deterministic.
func Render(b model.Bundle, template string) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", ErrEmptyTemplate
	}

	evidence := Evidence(b)
	pairs := []string{
		"{evidence}", evidence,
		"{range}", b.Range.String(),
		"{yesterday}", b.Range.Start.String(),
		"{today}", b.Range.End.String(),
		"{ticket_work}", TicketWork(b),
	}
	for _, p := range sourcePlaceholders {
		pairs = append(pairs, p.key, sourceBody(b, p.source))
	}
	out := strings.NewReplacer(pairs...).Replace(template)

	if !hasEvidencePlaceholder(template) {
		out = strings.TrimRight(out, "\n") + "\n\n" + evidence
	}
	return strings.TrimRight(out, "\n") + "\n", nil
}

func hasEvidencePlaceholder(template string) bool {
	if strings.Contains(template, "{evidence}") {
		return true
	}
	for _, p := range sourcePlaceholders {
		if strings.Contains(template, p.key) {
			return true
		}
	}
	return false
}

// Evidence renders one "## Title" section per group, in bundle order.
func Evidence(b model.Bundle) string {
	if b.Len() == 0 {
		return NoEvidence
	}
	sections := make([]string, 0, len(b.Groups))
	for _, g := range b.Groups {
		if len(g.Records) == 0 {
			continue
		}
		sections = append(sections, "## "+Title(g.Source)+"\n"+formatGroup(g.Records))
	}
	return strings.Join(sections, "\n\n")
}

// Title is the section heading of a source.
func Title(src model.Source) string {
	if t, ok := sectionTitles[src]; ok {
		return t
	}
	s := string(src)
	if s == "" {
		return "Other"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sourceBody(b model.Bundle, src model.Source) string {
	for _, g := range b.Groups {
		if g.Source == src && len(g.Records) > 0 {
			return formatGroup(g.Records)
		}
	}
	return noneRecorded
}

// formatGroup writes one line per record, with a "### date" heading each time the date changes.
func formatGroup(records []model.Record) string {
	var sb strings.Builder
	var last model.Date
	for i, r := range records {
		if i == 0 || r.Date() != last {
			if i > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString("### " + r.Date().String() + "\n")
			last = r.Date()
		}
		sb.WriteString("- " + FormatRecord(r) + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatRecord renders a single record. Tickets read "[KEY] text"; every
// other source reads "text (k=v, k2=v2)" with metadata keys sorted.
func FormatRecord(r model.Record) string {
	if r.Source() == model.SourceTicket {
		if r.Identifier() == "" {
			return r.Text()
		}
		return "[" + r.Identifier() + "] " + r.Text()
	}
	if !r.HasMetadata() {
		return r.Text()
	}
	keys := r.MetadataKeys()
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+r.MetadataValue(k))
	}
	return r.Text() + " (" + strings.Join(parts, ", ") + ")"
}
