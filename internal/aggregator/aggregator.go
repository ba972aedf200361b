package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/dedup"
	"github.com/crimson-sun/standup/internal/logging"
	"github.com/crimson-sun/standup/internal/model"
)

const defaultConcurrency = 4

// Aggregator fans out to every configured connector and merges the results
// into a single Bundle.
type Aggregator struct {
	readers     []connector.Connector
	priority    []model.Source
	concurrency int
	logger      *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithPriority sets the source order of the bundle. Sources missing from p
// follow the listed ones alphabetically.
func WithPriority(p []model.Source) Option {
	return func(a *Aggregator) {
		if len(p) > 0 {
			a.priority = p
		}
	}
}

// WithConcurrency limits how many connectors fetch at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger used for connector warnings. By default the
// logger carried by the Collect context is used.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Aggregator over readers. Reader order decides merge order
// within a source.
func New(readers []connector.Connector, opts ...Option) *Aggregator {
	a := &Aggregator{
		readers:     readers,
		priority:    model.Sources,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type fetchResult struct {
	records []model.Record
	err     error
}

// Collect fetches r from every reader concurrently and waits for all of them.
// A failing reader becomes a warning on the bundle. The only error returned
// is the context's, when it is cancelled.
func (a *Aggregator) Collect(ctx context.Context, r model.DateRange) (model.Bundle, error) {
	log := a.logger
	if log == nil {
		log = logging.FromContext(ctx)
	}
	results := make([]fetchResult, len(a.readers))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, rd := range a.readers {
		i, rd := i, rd
		g.Go(func() error {
			results[i] = fetch(ctx, rd, r)
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return model.Bundle{}, err
	}

	bundle := model.Bundle{Range: r}
	var all []model.Record
	for i, res := range results {
		name := a.readers[i].Name()
		if res.err != nil {
			bundle.Warnings = append(bundle.Warnings, warn(log, name, res.err))
			continue
		}

		kept := 0
		for _, rec := range res.records {
			if !r.Contains(rec.Date()) {
				continue
			}
			all = append(all, rec)
			kept++
		}
		if dropped := len(res.records) - kept; dropped > 0 {
			log.Debug("dropped out-of-range records", "connector", name, "count", dropped)
		}
		log.Debug("connector fetched", "connector", name, "records", kept)
	}

	all, dups := dedup.Records(all)
	if dups > 0 {
		log.Debug("dropped duplicate records", "count", dups)
	}

	bundle.Groups = group(all, a.priority)
	return bundle, nil
}

// fetch runs one reader, turning a panic into an error.
func fetch(ctx context.Context, rd connector.Connector, r model.DateRange) (res fetchResult) {
	defer func() {
		if p := recover(); p != nil {
			res = fetchResult{err: fmt.Errorf("panic: %v", p)}
		}
	}()
	recs, err := rd.Fetch(ctx, r)
	return fetchResult{records: recs, err: err}
}

func warn(log *slog.Logger, name string, err error) model.Warning {
	w := model.Warning{Connector: name, Message: err.Error()}
	switch {
	case errors.Is(err, connector.ErrAuth):
		w.Kind = model.WarningAuth
		log.Warn("connector authentication failed, check credentials", "connector", name, "error", err)
	case errors.Is(err, connector.ErrUnavailable):
		w.Kind = model.WarningUnavailable
		log.Warn("connector unavailable", "connector", name, "error", err)
	default:
		w.Kind = model.WarningOther
		log.Warn("connector failed", "connector", name, "error", err)
	}
	return w
}

// group buckets records by source in priority order, keeping record order
// within each source. Only non-empty sources get a group.
func group(records []model.Record, priority []model.Source) []model.Group {
	bySource := make(map[model.Source][]model.Record)
	for _, rec := range records {
		bySource[rec.Source()] = append(bySource[rec.Source()], rec)
	}

	var order []model.Source
	listed := make(map[model.Source]bool, len(priority))
	for _, src := range priority {
		if listed[src] {
			continue
		}
		listed[src] = true
		order = append(order, src)
	}
	var rest []model.Source
	for src := range bySource {
		if !listed[src] {
			rest = append(rest, src)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	order = append(order, rest...)

	groups := make([]model.Group, 0, len(bySource))
	for _, src := range order {
		if recs := bySource[src]; len(recs) > 0 {
			groups = append(groups, model.Group{Source: src, Records: recs})
		}
	}
	return groups
}
