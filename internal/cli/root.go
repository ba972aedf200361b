package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/standup/internal/aggregator"
	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/generator"
	"github.com/crimson-sun/standup/internal/logging"
	"github.com/crimson-sun/standup/internal/model"
	"github.com/crimson-sun/standup/internal/output"
	"github.com/crimson-sun/standup/internal/output/file"
	"github.com/crimson-sun/standup/internal/output/multi"
	"github.com/crimson-sun/standup/internal/output/stdout"
	"github.com/crimson-sun/standup/internal/output/webhook"
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

type rootOptions struct {
	configPath string
	date       string
	preset     string
	dryRun     bool
	format     string
	pretty     bool
	logLevel   string
}

// NewRootCmd builds the standup command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "standup",
		Short: "Generate a daily standup summary from your work trail",
		Long: `standup collects tickets, commits, hosting activity, time entries and notes
for the standup window (yesterday, or Friday through Sunday on a Monday, plus today)
and asks a language model to write the summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStandup(cmd.Context(), cmd.OutOrStdout(), opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "config file (default: standup.yaml in . or the user config dir)")
	f.StringVarP(&opts.date, "date", "d", "", "treat this date (YYYY-MM-DD) as today")
	f.StringVarP(&opts.preset, "preset", "p", "", "prompt preset, overrides the configured one")
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the rendered prompt and skip generation")
	f.StringVarP(&opts.format, "format", "f", output.FormatText, "output format: text or json")
	f.BoolVar(&opts.pretty, "pretty", false, "style text output, indent json")
	f.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	return cmd
}

// Execute runs cmd with a context cancelled on SIGINT/SIGTERM and prints
// any error to stderr.
func Execute(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runStandup(ctx context.Context, w io.Writer, opts *rootOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	today := model.DateOf(time.Now())
	if opts.date != "" {
		if today, err = model.ParseDate(opts.date); err != nil {
			return fmt.Errorf("--date: %w", err)
		}
	}

	cfg, err := loadConfig(opts.configPath, opts.logLevel)
	if err != nil {
		return err
	}
	if opts.preset != "" {
		cfg.Preset = opts.preset
		cfg.Instruction = ""
	}
	validate := cfg.Validate
	if opts.dryRun {
		validate = cfg.ValidatePrompt
	}
	if err := validate(); err != nil {
		return err
	}
	slog.Debug("configuration loaded", "config", cfg)

	template, err := prompt.Instruction(cfg.Instruction, cfg.Preset)
	if err != nil {
		return err
	}

	readers, err := connector.Build(cfg, cfg.Readers)
	if err != nil {
		return err
	}
	agg := aggregator.New(readers, aggregator.WithPriority(cfg.Priority))
	r := model.StandupRange(today)

	if opts.dryRun {
		p := pipeline.New(agg, template, nil)
		res, err := p.Preview(ctx, r)
		if err != nil {
			return err
		}
		fmt.Fprint(w, res.Prompt)
		return nil
	}

	gen, err := generator.New(cfg)
	if err != nil {
		return err
	}
	out, err := buildOutput(cfg, format, opts.pretty)
	if err != nil {
		return err
	}

	p := pipeline.New(agg, template, gen,
		pipeline.WithOutput(out),
		pipeline.WithModel(cfg.Model),
		pipeline.WithStageHook(func(runID string, s pipeline.Stage) {
			slog.Debug("stage", "run_id", runID, "stage", s)
		}),
	)
	defer p.Close()

	_, err = p.Run(ctx, r)
	return err
}

// loadConfig reads the configuration and sets up logging from it. A
// non-empty level overrides the configured one.
func loadConfig(path, level string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.Log.Level = level
	}
	logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

// buildOutput always writes to stdout and adds the file and webhook targets
// when they are configured.
func buildOutput(cfg *config.Config, format string, pretty bool) (output.Output, error) {
	outs := []output.Output{stdout.New(format, pretty)}
	if cfg.Output.File != "" {
		f, err := file.New(cfg.Output.File, format)
		if err != nil {
			return nil, err
		}
		outs = append(outs, f)
	}
	if cfg.Output.WebhookURL != "" {
		outs = append(outs, webhook.New(cfg.Output.WebhookURL, webhook.WithTimeout(cfg.HTTP.Timeout)))
	}
	if len(outs) == 1 {
		return outs[0], nil
	}
	return multi.New(outs...), nil
}
