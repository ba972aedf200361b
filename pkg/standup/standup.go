package standup

import (
	"context"
	"fmt"
	"time"

	"github.com/crimson-sun/standup/internal/aggregator"
	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/generator"
	"github.com/crimson-sun/standup/internal/model"
	"github.com/crimson-sun/standup/internal/pipeline"
	"github.com/crimson-sun/standup/internal/prompt"

	// Register connector implementations.
	_ "github.com/crimson-sun/standup/internal/connector/contextswitcher"
	_ "github.com/crimson-sun/standup/internal/connector/git"
	_ "github.com/crimson-sun/standup/internal/connector/github"
	_ "github.com/crimson-sun/standup/internal/connector/jira"
	_ "github.com/crimson-sun/standup/internal/connector/notes"
	_ "github.com/crimson-sun/standup/internal/connector/timewarrior"
)

// Standup generates standup summaries from the configured connectors.
type Standup struct {
	pipeline *pipeline.Pipeline
}

// New loads configuration, builds the enabled connectors and the generator.
// Configuration problems are reported here, before any network activity.
func New(opts ...Option) (*Standup, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, fmt.Errorf("standup: %w", err)
	}
	// An explicit preset replaces a configured instruction; an explicit
	// instruction still wins over both.
	if o.preset != "" {
		cfg.Preset = o.preset
		cfg.Instruction = ""
	}
	if o.instruction != "" {
		cfg.Instruction = o.instruction
	}
	if len(o.readers) > 0 {
		cfg.Readers = o.readers
	}

	gen := generator.Generator(o.generator)
	if gen == nil {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("standup: %w", err)
		}
		if gen, err = generator.New(cfg); err != nil {
			return nil, fmt.Errorf("standup: %w", err)
		}
	}

	template, err := prompt.Instruction(cfg.Instruction, cfg.Preset)
	if err != nil {
		return nil, fmt.Errorf("standup: %w", err)
	}

	readers, err := connector.Build(cfg, cfg.Readers)
	if err != nil {
		return nil, fmt.Errorf("standup: %w", err)
	}
	agg := aggregator.New(readers,
		aggregator.WithPriority(cfg.Priority),
		aggregator.WithConcurrency(o.concurrency),
	)

	p := pipeline.New(agg, template, gen, pipeline.WithModel(cfg.Model))
	return &Standup{pipeline: p}, nil
}

// Generate writes the standup for the window ending on today's calendar date:
// the previous working day through today.
func (s *Standup) Generate(ctx context.Context, today time.Time) (Summary, error) {
	res, err := s.pipeline.Run(ctx, model.StandupRange(model.DateOf(today)))
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Text:        res.Summary.Text,
		Range:       res.Summary.Range,
		Model:       res.Summary.Model,
		RunID:       res.RunID,
		GeneratedAt: res.Summary.GeneratedAt,
		Warnings:    warningsFromModel(res.Warnings),
	}, nil
}

// Prompt returns the rendered prompt Generate would send, without calling
// the generator.
func (s *Standup) Prompt(ctx context.Context, today time.Time) (string, error) {
	res, err := s.pipeline.Preview(ctx, model.StandupRange(model.DateOf(today)))
	if err != nil {
		return "", err
	}
	return res.Prompt, nil
}

func warningsFromModel(ws []model.Warning) []Warning {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Warning, len(ws))
	for i, w := range ws {
		out[i] = Warning{Connector: w.Connector, Kind: string(w.Kind), Message: w.Message}
	}
	return out
}
