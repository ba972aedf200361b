package standup

import "context"

// Generator turns a rendered prompt into summary text. Supply one with
// WithGenerator to bypass the configured backend.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type options struct {
	configFile  string
	preset      string
	instruction string
	readers     []string
	generator   Generator
	concurrency int
}

// Option configures a Standup instance.
type Option func(*options)

// WithConfigFile reads settings from path instead of searching for standup.yaml.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithPreset selects a built-in preset by name. See Presets.
func WithPreset(name string) Option {
	return func(o *options) {
		o.preset = name
	}
}

// WithInstruction sets a custom instruction template. It wins over any preset.
func WithInstruction(template string) Option {
	return func(o *options) {
		o.instruction = template
	}
}

// WithReaders restricts the run to the named connectors, in order.
func WithReaders(names ...string) Option {
	return func(o *options) {
		o.readers = names
	}
}

// WithGenerator replaces the configured language model backend.
// Backend settings (project, location, API key) are then not required.
func WithGenerator(g Generator) Option {
	return func(o *options) {
		o.generator = g
	}
}

// WithConcurrency limits how many connectors fetch at once. Default: 4.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}
