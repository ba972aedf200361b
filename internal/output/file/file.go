package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crimson-sun/standup/internal/model"
	"github.com/crimson-sun/standup/internal/output"
)

// Output writes the latest summary to a file, replacing what was there.
// The file is written to a temporary sibling and renamed into place so a
// reader never sees a partial summary.
type Output struct {
	path   string
	format string
}

// New creates a file output for path. The parent directory must exist.
func New(path, format string) (*Output, error) {
	if path == "" {
		return nil, fmt.Errorf("file output: empty path")
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("file output: directory of %s does not exist", path)
	}
	return &Output{path: path, format: format}, nil
}

// Name identifies the output in delivery errors.
func (o *Output) Name() string { return "file " + o.path }

func (o *Output) Write(_ context.Context, s model.Summary) error {
	data, err := output.Format(s, o.format, false)
	if err != nil {
		return fmt.Errorf("file output: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(o.path), ".standup-*")
	if err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file output: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file output: close: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("file output: %w", err)
	}
	if err := os.Rename(tmp.Name(), o.path); err != nil {
		return fmt.Errorf("file output: rename: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
