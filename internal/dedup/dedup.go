package dedup

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/crimson-sun/standup/internal/model"
)

// Key returns the identity of a record: source, date and identifier, or the
// normalized text when the record has no identifier.
func Key(r model.Record) string {
	id := r.Identifier()
	if id == "" {
		id = "text:" + normalize(r.Text())
	} else {
		id = "id:" + id
	}
	return string(r.Source()) + "|" + r.Date().String() + "|" + id
}

// Records drops records whose Key was already seen. The first occurrence
// wins and the input order is preserved. It returns how many were dropped.
func Records(records []model.Record) ([]model.Record, int) {
	if len(records) == 0 {
		return nil, 0
	}

	seen := make(map[string]struct{}, len(records))
	result := make([]model.Record, 0, len(records))
	for _, r := range records {
		k := Key(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		result = append(result, r)
	}
	return result, len(records) - len(result)
}

// normalize folds case and whitespace so trivially different note lines compare equal.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(norm.NFC.String(s)), " "))
}
