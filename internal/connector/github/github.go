package github

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
	"github.com/crimson-sun/standup/internal/model"
)

const name = "github"

const (
	defaultEndpoint = "https://api.github.com"
	apiVersion      = "2022-11-28"
	perPage         = 100
	// The events API serves at most 300 events.
	maxPages     = 3
	shortHashLen = 7
)

func init() {
	connector.Register(name, func(cfg *config.Config) (connector.Connector, error) {
		c, err := New(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
}

// Connector reads a user's public and organisation activity from the GitHub events API.
type Connector struct {
	baseURL  string
	username string
	org      string
	tokens   tokenSource
	limiter  *rate.Limiter
	timeout  time.Duration
	retries  int
	loc      *time.Location
}

// Response types (unexported).

type event struct {
	ID        string       `json:"id"`
	Type      string       `json:"type"`
	CreatedAt time.Time    `json:"created_at"`
	Repo      eventRepo    `json:"repo"`
	Payload   eventPayload `json:"payload"`
}

type eventRepo struct {
	Name string `json:"name"`
}

type eventPayload struct {
	Action      string        `json:"action"`
	Ref         string        `json:"ref"`
	RefType     string        `json:"ref_type"`
	Commits     []eventCommit `json:"commits"`
	PullRequest *titled       `json:"pull_request"`
	Issue       *titled       `json:"issue"`
}

type eventCommit struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

type titled struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

type user struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

// New builds a GitHub connector. It stays disabled unless github.enabled is set
// and a username plus either a token or a complete App configuration is present.
func New(cfg *config.Config) (*Connector, error) {
	g := cfg.GitHub
	if !g.Enabled {
		return nil, connector.Disabled(name, "github.enabled is false")
	}
	if g.Username == "" {
		return nil, connector.Disabled(name, "github.username not set")
	}

	base := strings.TrimSuffix(g.Endpoint, "/")
	if base == "" {
		base = defaultEndpoint
	}

	c := &Connector{
		baseURL:  base,
		username: g.Username,
		org:      g.Org,
		limiter:  rate.NewLimiter(rate.Limit(5), 5),
		timeout:  cfg.HTTP.Timeout,
		retries:  cfg.HTTP.Retries,
		loc:      time.Local,
	}

	switch {
	case g.Token != "":
		c.tokens = staticToken(g.Token)
	case g.AppID != "" && g.InstallationID != "" && g.PrivateKeyPath != "":
		key, err := loadPrivateKey(g.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		c.tokens = &appTokenSource{
			baseURL:        base,
			appID:          g.AppID,
			installationID: g.InstallationID,
			key:            key,
			timeout:        cfg.HTTP.Timeout,
			now:            time.Now,
		}
	default:
		return nil, connector.Disabled(name, "neither GITHUB_TOKEN nor app_id, installation_id and PRIVATE_KEY_PATH set")
	}
	return c, nil
}

func (c *Connector) Name() string { return name }

// client returns an API client authenticated with the current token.
func (c *Connector) client(ctx context.Context) (*httpclient.Client, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return httpclient.New(c.baseURL,
		httpclient.WithBearer(token),
		httpclient.WithHeader("Accept", "application/vnd.github+json"),
		httpclient.WithHeader("X-GitHub-Api-Version", apiVersion),
		httpclient.WithRateLimit(c.limiter),
		httpclient.WithTimeout(c.timeout),
		httpclient.WithMaxRetries(c.retries),
	), nil
}

// Fetch pages through the user's events, newest first, until it passes r.Start.
func (c *Connector) Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error) {
	client, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	path := "/users/" + url.PathEscape(c.username) + "/events"
	if c.org != "" {
		path += "/orgs/" + url.PathEscape(c.org)
	}

	var events []event
	for page := 1; page <= maxPages; page++ {
		q := url.Values{}
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var batch []event
		if err := client.GetJSON(ctx, path, q, &batch); err != nil {
			return nil, connector.FromHTTP(name, err)
		}
		events = append(events, batch...)

		if len(batch) < perPage {
			break
		}
		if oldest := batch[len(batch)-1]; model.DateOf(oldest.CreatedAt.In(c.loc)).Before(r.Start) {
			break
		}
	}

	// Events arrive newest first; records read better oldest first.
	var results []model.Record
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		d := model.DateOf(e.CreatedAt.In(c.loc))
		if !r.Contains(d) {
			continue
		}
		results = append(results, toRecords(e, d)...)
	}
	return results, nil
}

// Check verifies credentials and returns the configured user's login.
func (c *Connector) Check(ctx context.Context) (string, error) {
	client, err := c.client(ctx)
	if err != nil {
		return "", err
	}
	var u user
	if err := client.GetJSON(ctx, "/users/"+url.PathEscape(c.username), nil, &u); err != nil {
		return "", connector.FromHTTP(name, err)
	}
	if u.Login == "" {
		return "", connector.Unavailable(name, errors.New("empty user response"))
	}
	if u.Name != "" {
		return fmt.Sprintf("%s (%s)", u.Login, u.Name), nil
	}
	return u.Login, nil
}

// toRecords maps pushed commits to commit records and every other event to one activity record.
func toRecords(e event, d model.Date) []model.Record {
	repo := e.Repo.Name
	if e.Type == "PushEvent" && len(e.Payload.Commits) > 0 {
		out := make([]model.Record, 0, len(e.Payload.Commits))
		for _, cm := range e.Payload.Commits {
			sha := cm.SHA
			if len(sha) > shortHashLen {
				sha = sha[:shortHashLen]
			}
			subject, _, _ := strings.Cut(cm.Message, "\n")
			out = append(out, model.NewRecord(model.SourceCommit, d, sha, strings.TrimSpace(subject),
				map[string]string{"repo": repo, "via": "github"}))
		}
		return out
	}
	return []model.Record{
		model.NewRecord(model.SourceActivity, d, e.ID, describe(e), map[string]string{"repo": repo}),
	}
}

// describe renders an event as "<Type> <action> on <repo>", with the PR or issue title when known.
func describe(e event) string {
	var b strings.Builder
	b.WriteString(e.Type)
	switch {
	case e.Payload.Action != "":
		b.WriteString(" " + e.Payload.Action)
	case e.Type == "PushEvent" && e.Payload.Ref != "":
		b.WriteString(" " + strings.TrimPrefix(e.Payload.Ref, "refs/heads/"))
	case e.Payload.RefType != "":
		b.WriteString(" " + e.Payload.RefType)
		if e.Payload.Ref != "" {
			b.WriteString(" " + e.Payload.Ref)
		}
	}
	b.WriteString(" on " + orDefault(e.Repo.Name, "unknown repo"))

	t := e.Payload.PullRequest
	if t == nil {
		t = e.Payload.Issue
	}
	if t != nil && t.Title != "" {
		fmt.Fprintf(&b, ": #%d %s", t.Number, t.Title)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
