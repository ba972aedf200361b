package generator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/crimson-sun/standup/internal/config"
)

// Generator turns a rendered prompt into summary text.
// Implementations make exactly one backend call per Generate.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrGeneration matches every *GenerationError.
var ErrGeneration = errors.New("summary generation failed")

// GenerationError reports a failed or empty backend response.
type GenerationError struct {
	Backend string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Backend, ErrGeneration, e.Err)
}

func (e *GenerationError) Unwrap() []error {
	return []error{ErrGeneration, e.Err}
}

var errEmptyResponse = errors.New("backend returned no text")

// Constructor builds a Generator from the run configuration.
type Constructor func(cfg *config.Config) (Generator, error)

var registry = map[string]Constructor{}

// Register adds a backend constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the generator selected by cfg.Backend.
func New(cfg *config.Config) (Generator, error) {
	ctor, ok := registry[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown generation backend: %s", cfg.Backend)
	}
	return ctor(cfg)
}
