package connector

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/crimson-sun/standup/internal/config"
)

// Constructor builds a Connector from the run configuration.
// It returns an error wrapping ErrDisabled when the connector is not configured.
type Constructor func(cfg *config.Config) (Connector, error)

var registry = map[string]Constructor{}

// Register adds a connector constructor under the given name.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// Get returns the connector constructor for the given name.
func Get(name string) (Constructor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown connector: %s", name)
	}
	return ctor, nil
}

// Providers returns the names of all registered connectors, sorted.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named connectors in order. Disabled connectors are
// skipped with an info log; any other constructor error is returned.
func Build(cfg *config.Config, names []string) ([]Connector, error) {
	var out []Connector
	for _, name := range names {
		ctor, err := Get(name)
		if err != nil {
			return nil, err
		}
		conn, err := ctor(cfg)
		if errors.Is(err, ErrDisabled) {
			slog.Info("connector disabled", "connector", name, "reason", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("build connector %s: %w", name, err)
		}
		out = append(out, conn)
	}
	return out, nil
}
