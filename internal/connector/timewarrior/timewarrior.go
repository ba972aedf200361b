package timewarrior

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/model"
)

const name = "timewarrior"

// timew export timestamps are UTC in ISO 8601 basic format.
const timeLayout = "20060102T150405Z"

func init() {
	connector.Register(name, func(cfg *config.Config) (connector.Connector, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Connector reads tracked intervals from the timew CLI.
type Connector struct {
	binary string
	loc    *time.Location
	run    func(ctx context.Context, bin string, args ...string) ([]byte, error)
}

type interval struct {
	ID         int      `json:"id"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Tags       []string `json:"tags"`
	Annotation string   `json:"annotation"`
}

// New builds a timewarrior connector. It is disabled when the binary is not on PATH.
func New(cfg *config.Config) (*Connector, error) {
	bin := cfg.Timewarrior.Binary
	if bin == "" {
		bin = "timew"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, connector.Disabled(name, fmt.Sprintf("%s not found", bin))
	}
	return &Connector{binary: path, loc: time.Local, run: execRun}, nil
}

func (c *Connector) Name() string { return name }

// Fetch exports the intervals overlapping r. Each record is dated by its local start day.
func (c *Connector) Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error) {
	out, err := c.run(ctx, c.binary, "export", r.Start.String(), "-", r.End.AddDays(1).String())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, connector.Unavailable(name, err)
	}

	var intervals []interval
	if len(bytes.TrimSpace(out)) > 0 {
		if err := json.Unmarshal(out, &intervals); err != nil {
			return nil, connector.Unavailable(name, fmt.Errorf("decode export: %w", err))
		}
	}

	var results []model.Record
	for _, iv := range intervals {
		rec, ok := c.toRecord(iv)
		if ok {
			results = append(results, rec)
		}
	}
	return results, nil
}

func (c *Connector) toRecord(iv interval) (model.Record, bool) {
	start, err := time.Parse(timeLayout, iv.Start)
	if err != nil {
		return model.Record{}, false
	}

	text := strings.Join(iv.Tags, ", ")
	if iv.Annotation != "" {
		if text != "" {
			text += ": "
		}
		text += iv.Annotation
	}
	if text == "" {
		text = "untagged"
	}

	md := map[string]string{"duration": "ongoing"}
	if iv.End != "" {
		if end, err := time.Parse(timeLayout, iv.End); err == nil {
			md["duration"] = FormatDuration(end.Sub(start))
		}
	}

	if keys := model.TicketKeys(strings.Join(iv.Tags, " ")); len(keys) > 0 {
		md["ticket"] = keys[0]
	}

	// The start timestamp identifies the interval; two intervals on the same
	// ticket and day are distinct work.
	return model.NewRecord(model.SourceTimeEntry, model.DateOf(start.In(c.loc)), iv.Start, text, md), true
}

// FormatDuration rounds d to the minute and drops the zero seconds, e.g. "1h30m".
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d <= 0 {
		return "0m"
	}
	s := d.String()
	return strings.TrimSuffix(s, "0s")
}

func execRun(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return out, nil
}
