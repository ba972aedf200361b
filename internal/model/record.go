package model

import (
	"fmt"
	"maps"
	"sort"
)

// Source identifies the kind of system a Record came from.
type Source string

const (
	SourceNote      Source = "note"
	SourceCommit    Source = "commit"
	SourceTicket    Source = "ticket"
	SourceTimeEntry Source = "time-entry"
	SourceActivity  Source = "activity" // hosting events that are not commits
)

// Sources lists every known source in the default priority order.
var Sources = []Source{SourceTicket, SourceCommit, SourceActivity, SourceTimeEntry, SourceNote}

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	for _, src := range Sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown evidence source %q", s)
}

// Record is one normalized unit of work evidence produced by a connector.
// Fields are unexported so a Record cannot change after NewRecord returns it.
type Record struct {
	source     Source
	date       Date
	identifier string
	text       string
	metadata   map[string]string
}

// NewRecord builds a Record. The metadata map is copied.
func NewRecord(source Source, date Date, identifier, text string, metadata map[string]string) Record {
	var md map[string]string
	if len(metadata) > 0 {
		md = maps.Clone(metadata)
	}
	return Record{
		source:     source,
		date:       date,
		identifier: identifier,
		text:       text,
		metadata:   md,
	}
}

func (r Record) Source() Source { return r.source }
func (r Record) Date() Date { return r.date }
func (r Record) Identifier() string { return r.identifier }
func (r Record) Text() string { return r.text }
func (r Record) HasMetadata() bool { return len(r.metadata) > 0 }

// Metadata returns a copy of the record's source-specific fields.
func (r Record) Metadata() map[string]string {
	return maps.Clone(r.metadata)
}

// MetadataValue returns a single metadata field.
func (r Record) MetadataValue(key string) string {
	return r.metadata[key]
}

// MetadataKeys returns the metadata keys in sorted order.
func (r Record) MetadataKeys() []string {
	keys := make([]string, 0, len(r.metadata))
	for k := range r.metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
