package stdout

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/standup/internal/model"
	"github.com/crimson-sun/standup/internal/output"
)

// Output writes the summary to stdout as text or JSON.
type Output struct {
	w      io.Writer
	format string
	pretty bool
}

// New creates a stdout Output. pretty styles text output and indents JSON.
func New(format string, pretty bool) *Output {
	return &Output{w: os.Stdout, format: format, pretty: pretty}
}

// Name identifies the output in delivery errors.
func (o *Output) Name() string { return "stdout" }

func (o *Output) Write(_ context.Context, s model.Summary) error {
	b, err := output.Format(s, o.format, o.pretty)
	if err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	if _, err := o.w.Write(b); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
