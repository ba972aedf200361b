package connector

import (
	"context"

	"github.com/crimson-sun/standup/internal/model"
)

// Connector defines the interface all evidence sources must implement.
type Connector interface {
	// Name is the registry name, used in logs and warnings.
	Name() string

	// Fetch returns the records for every day in r, in the source's native order.
	// An empty result is not an error.
	Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error)
}
