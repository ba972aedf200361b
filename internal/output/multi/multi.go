package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/standup/internal/logging"
	"github.com/crimson-sun/standup/internal/model"
	"github.com/crimson-sun/standup/internal/output"
)

// DeliveryError names the output that failed to take a summary.
type DeliveryError struct {
	Target string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Multi delivers a summary to stdout, the summary file and the webhook in
// the order given. A failing target does not stop delivery to the rest.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi over the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers s to every target. Each failure is logged with the run id
// and returned as a *DeliveryError, joined with the others.
func (m *Multi) Write(ctx context.Context, s model.Summary) error {
	log := logging.FromContext(ctx)
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, s); err != nil {
			target := targetName(o)
			log.Warn("summary delivery failed", "run_id", s.RunID, "target", target, "error", err)
			errs = append(errs, &DeliveryError{Target: target, Err: err})
		}
	}
	return errors.Join(errs...)
}

// Close closes every target, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, &DeliveryError{Target: targetName(o), Err: err})
		}
	}
	return errors.Join(errs...)
}

func targetName(o output.Output) string {
	if n, ok := o.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", o)
}
