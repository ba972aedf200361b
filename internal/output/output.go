package output

import (
	"context"

	"github.com/crimson-sun/standup/internal/model"
)

// Output defines the interface for summary destinations.
type Output interface {
	Write(ctx context.Context, s model.Summary) error
	Close() error
}
