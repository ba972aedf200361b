package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/logging"
	"github.com/crimson-sun/standup/internal/model"
)

const name = "git"

// Field separator in --pretty output (ASCII unit separator).
const sep = "\x1f"

const shortHashLen = 7

func init() {
	connector.Register(name, func(cfg *config.Config) (connector.Connector, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// runFunc executes a command in dir and returns its stdout.
type runFunc func(ctx context.Context, dir, bin string, args ...string) ([]byte, error)

// Connector lists the author's commits across local repositories.
type Connector struct {
	author   string
	repos    []string
	binary   string
	lookPath func(string) (string, error)
	run      runFunc
}

// New builds a git connector. It is disabled without repos or an author.
func New(cfg *config.Config) (*Connector, error) {
	if len(cfg.Git.Repos) == 0 {
		return nil, connector.Disabled(name, "repos not set")
	}
	if cfg.Git.Author == "" {
		return nil, connector.Disabled(name, "git_author not set")
	}
	return &Connector{
		author:   cfg.Git.Author,
		repos:    cfg.Git.Repos,
		binary:   "git",
		lookPath: exec.LookPath,
		run:      execRun,
	}, nil
}

func (c *Connector) Name() string { return name }

// Fetch runs git log in every configured repository. A failing repository is
// skipped; the source is unavailable only when all of them fail.
func (c *Connector) Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error) {
	if _, err := c.lookPath(c.binary); err != nil {
		return nil, connector.Unavailable(name, err)
	}

	log := logging.FromContext(ctx)
	args := logArgs(c.author, r)
	var (
		results []model.Record
		errs    []error
		tried   int
	)
	for _, repo := range c.repos {
		if info, err := os.Stat(repo); err != nil || !info.IsDir() {
			log.Debug("skipping repo path", "connector", name, "repo", repo)
			continue
		}
		tried++

		out, err := c.run(ctx, repo, c.binary, args...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("git log failed", "connector", name, "repo", repo, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
			continue
		}
		results = append(results, parseLog(out, filepath.Base(filepath.Clean(repo)))...)
	}

	if tried > 0 && len(errs) == tried {
		return nil, connector.Unavailable(name, errors.Join(errs...))
	}
	return results, nil
}

// logArgs dates each commit by its committer date, the date --since and
// --until filter on.
func logArgs(author string, r model.DateRange) []string {
	return []string{
		"log", "--all", "--reverse",
		"--author=" + author,
		"--since=" + r.Start.String() + "T00:00:00",
		"--until=" + r.End.String() + "T23:59:59",
		"--pretty=format:%H%x1f%cd%x1f%s%x1f%D",
		"--date=short",
	}
}

// parseLog converts git log output into commit records. Malformed lines are skipped.
func parseLog(out []byte, repo string) []model.Record {
	var results []model.Record
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, sep, 4)
		if len(fields) < 3 {
			continue
		}
		date, err := model.ParseDate(fields[1])
		if err != nil {
			continue
		}
		hash := fields[0]
		if len(hash) > shortHashLen {
			hash = hash[:shortHashLen]
		}
		md := map[string]string{"repo": repo}
		if len(fields) == 4 && strings.TrimSpace(fields[3]) != "" {
			md["refs"] = strings.TrimSpace(fields[3])
		}
		results = append(results, model.NewRecord(model.SourceCommit, date, hash, strings.TrimSpace(fields[2]), md))
	}
	return results
}

func execRun(ctx context.Context, dir, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
