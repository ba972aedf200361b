package contextswitcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
	"github.com/crimson-sun/standup/internal/model"
)

const name = "contextswitcher"

const maxNoteRunes = 100

func init() {
	connector.Register(name, func(cfg *config.Config) (connector.Connector, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Connector reads task switches from a local context-switcher service.
type Connector struct {
	client *httpclient.Client
	loc    *time.Location
}

// Response types (unexported).

type listResponse struct {
	Switches []switchEntry `json:"switches"`
}

type switchEntry struct {
	Task            string   `json:"task"`
	StartTime       string   `json:"start_time"`
	DurationMinutes int      `json:"duration_minutes"`
	Tags            []string `json:"tags"`
	Notes           string   `json:"notes"`
}

// New builds the connector. It stays disabled unless context_switcher.enabled is set.
func New(cfg *config.Config) (*Connector, error) {
	if !cfg.ContextSwitcher.Enabled {
		return nil, connector.Disabled(name, "context_switcher.enabled is false")
	}
	if cfg.ContextSwitcher.URL == "" {
		return nil, connector.Disabled(name, "context_switcher.url not set")
	}
	return &Connector{
		client: httpclient.New(strings.TrimSuffix(cfg.ContextSwitcher.URL, "/"),
			httpclient.WithTimeout(cfg.HTTP.Timeout),
			httpclient.WithMaxRetries(cfg.HTTP.Retries),
		),
		loc: time.Local,
	}, nil
}

func (c *Connector) Name() string { return name }

// Fetch lists the switches started within r. Entries without a parseable start time are skipped.
func (c *Connector) Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error) {
	q := url.Values{}
	q.Set("start_date", r.Start.String())
	q.Set("end_date", r.End.String())

	var resp listResponse
	if err := c.client.GetJSON(ctx, "/switches/list", q, &resp); err != nil {
		return nil, connector.FromHTTP(name, err)
	}

	var results []model.Record
	for _, s := range resp.Switches {
		if rec, ok := c.toRecord(s); ok {
			results = append(results, rec)
		}
	}
	return results, nil
}

func (c *Connector) toRecord(s switchEntry) (model.Record, bool) {
	start, err := parseStart(s.StartTime, c.loc)
	if err != nil {
		return model.Record{}, false
	}

	task := s.Task
	if task == "" {
		task = "Unknown task"
	}

	md := map[string]string{"duration": "ongoing"}
	if s.DurationMinutes > 0 {
		md["duration"] = fmt.Sprintf("%dmin", s.DurationMinutes)
	}
	if len(s.Tags) > 0 {
		md["tags"] = strings.Join(s.Tags, ", ")
	}
	if s.Notes != "" {
		md["notes"] = truncate(s.Notes, maxNoteRunes)
	}

	if keys := model.TicketKeys(task + " " + strings.Join(s.Tags, " ")); len(keys) > 0 {
		md["ticket"] = keys[0]
	}
	return model.NewRecord(model.SourceTimeEntry, model.DateOf(start.In(c.loc)), s.StartTime, task, md), true
}

func parseStart(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, loc)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
