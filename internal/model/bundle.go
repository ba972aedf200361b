package model

import "time"

// Group holds the records of a single source in their merged order.
type Group struct {
	Source  Source
	Records []Record
}

// WarningKind classifies a connector failure that was downgraded to a warning.
type WarningKind string

const (
	WarningUnavailable WarningKind = "unavailable"
	WarningAuth        WarningKind = "auth"
	WarningOther       WarningKind = "other"
)

// Warning records a connector that failed during collection.
type Warning struct {
	Connector string
	Kind      WarningKind
	Message   string
}

// Bundle is the evidence collected for one run, grouped by source in priority order.
// Only non-empty sources have a group.
type Bundle struct {
	Range    DateRange
	Groups   []Group
	Warnings []Warning
}

// Records flattens the bundle in group order.
func (b Bundle) Records() []Record {
	var out []Record
	for _, g := range b.Groups {
		out = append(out, g.Records...)
	}
	return out
}

// Len returns the total number of records.
func (b Bundle) Len() int {
	n := 0
	for _, g := range b.Groups {
		n += len(g.Records)
	}
	return n
}

// Sources returns the sources present in the bundle, in group order.
func (b Bundle) Sources() []Source {
	out := make([]Source, 0, len(b.Groups))
	for _, g := range b.Groups {
		out = append(out, g.Source)
	}
	return out
}

// Summary is the generated standup text for one run.
type Summary struct {
	Text        string    `json:"text"`
	Range       string    `json:"range"`
	Model       string    `json:"model"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
}
