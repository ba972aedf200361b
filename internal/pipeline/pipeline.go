package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/standup/internal/generator"
	"github.com/crimson-sun/standup/internal/logging"
	"github.com/crimson-sun/standup/internal/model"
	"github.com/crimson-sun/standup/internal/output"
	"github.com/crimson-sun/standup/internal/prompt"
)

// Stage is a step of one run.
type Stage string

const (
	StageCollecting Stage = "collecting"
	StageRendering  Stage = "rendering"
	StageGenerating Stage = "generating"
	StageDone       Stage = "done"
)

// Collector gathers the evidence bundle for a range. *aggregator.Aggregator implements it.
type Collector interface {
	Collect(ctx context.Context, r model.DateRange) (model.Bundle, error)
}

// Result is everything a run produced.
type Result struct {
	RunID    string
	Bundle   model.Bundle
	Prompt   string
	Summary  model.Summary // zero for Preview
	Warnings []model.Warning
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOutput sets where the summary is written. Without it, Run only returns it.
func WithOutput(o output.Output) Option {
	return func(p *Pipeline) { p.output = o }
}

// WithModel records the model name on generated summaries.
func WithModel(name string) Option {
	return func(p *Pipeline) { p.model = name }
}

// WithStageHook is called on every stage transition.
func WithStageHook(f func(runID string, s Stage)) Option {
	return func(p *Pipeline) { p.onStage = f }
}

// WithClock overrides time.Now for GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline connects a collector, prompt template, generator and output
// into one linear run: collect, render, generate, write.
type Pipeline struct {
	collector Collector
	template  string
	generator generator.Generator
	output    output.Output
	model     string
	onStage   func(runID string, s Stage)
	now       func() time.Time
}

// New creates a Pipeline from the given components.
func New(c Collector, template string, gen generator.Generator, opts ...Option) *Pipeline {
	p := &Pipeline{
		collector: c,
		template:  template,
		generator: gen,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run performs one complete run over r. Connector failures only add warnings;
// render and generation failures end the run with an error.
func (p *Pipeline) Run(ctx context.Context, r model.DateRange) (Result, error) {
	res, ctx, err := p.prepare(ctx, r)
	if err != nil {
		return res, err
	}
	log := logging.FromContext(ctx)

	p.enter(res.RunID, StageGenerating)
	text, err := p.generator.Generate(ctx, res.Prompt)
	if err != nil {
		return res, fmt.Errorf("pipeline generate: %w", err)
	}

	res.Summary = model.Summary{
		Text:        text,
		Range:       r.String(),
		Model:       p.model,
		RunID:       res.RunID,
		GeneratedAt: p.now(),
	}
	if p.output != nil {
		if err := p.output.Write(ctx, res.Summary); err != nil {
			return res, fmt.Errorf("pipeline output: %w", err)
		}
	}

	p.enter(res.RunID, StageDone)
	log.Info("standup generated", "chars", len(text), "warnings", len(res.Warnings))
	return res, nil
}

// Preview collects and renders without calling the generator.
func (p *Pipeline) Preview(ctx context.Context, r model.DateRange) (Result, error) {
	res, _, err := p.prepare(ctx, r)
	return res, err
}

// prepare runs the collecting and rendering stages and returns the run-scoped context.
func (p *Pipeline) prepare(ctx context.Context, r model.DateRange) (Result, context.Context, error) {
	res := Result{RunID: uuid.NewString()}
	ctx, log := logging.WithRun(ctx, res.RunID)

	p.enter(res.RunID, StageCollecting)
	log.Info("collecting evidence", "range", r.String())
	bundle, err := p.collector.Collect(ctx, r)
	if err != nil {
		return res, ctx, fmt.Errorf("pipeline collect: %w", err)
	}
	res.Bundle = bundle
	res.Warnings = bundle.Warnings
	log.Info("evidence collected", "records", bundle.Len(), "sources", len(bundle.Groups), "warnings", len(bundle.Warnings))

	p.enter(res.RunID, StageRendering)
	text, err := prompt.Render(bundle, p.template)
	if err != nil {
		return res, ctx, fmt.Errorf("pipeline render: %w", err)
	}
	res.Prompt = text
	log.Debug("prompt rendered", "estimated_tokens", prompt.EstimateTokens(text))
	return res, ctx, nil
}

func (p *Pipeline) enter(runID string, s Stage) {
	if p.onStage != nil {
		p.onStage(runID, s)
	}
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	if p.output == nil {
		return nil
	}
	return p.output.Close()
}
