package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
	"github.com/crimson-sun/standup/internal/model"
)

const name = "jira"

// DefaultJQL selects the active tickets assigned to the authenticated user.
const DefaultJQL = `assignee = currentUser() AND status in ("To Do", "In Progress", "On Hold") ORDER BY priority DESC`

const (
	pageSize = 50
	maxPages = 10
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

// Connector reads the user's assigned tickets from the Jira Cloud REST API.
type Connector struct {
	client *httpclient.Client
	jql    string
}

// Response types (unexported).

type searchRequest struct {
	JQL           string   `json:"jql"`
	Fields        []string `json:"fields"`
	MaxResults    int      `json:"maxResults"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

type searchResponse struct {
	Issues        []issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
	IsLast        bool    `json:"isLast"`
}

type issue struct {
	Key    string      `json:"key"`
	Fields issueFields `json:"fields"`
}

type issueFields struct {
	Summary string `json:"summary"`
	Status  struct {
		Name string `json:"name"`
	} `json:"status"`
}

type myself struct {
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// New builds a Jira connector. It is disabled until domain, email and API key are set.
func New(cfg *config.Config) (*Connector, error) {
	j := cfg.Jira
	if j.Domain == "" && j.Endpoint == "" {
		return nil, connector.Disabled(name, "jira.domain not set")
	}
	if j.Email == "" || j.APIKey == "" {
		return nil, connector.Disabled(name, "jira.email or JIRA_API_KEY not set")
	}

	base := j.Endpoint
	if base == "" {
		base = "https://" + strings.TrimSuffix(j.Domain, "/")
	}
	jql := j.JQL
	if jql == "" {
		jql = DefaultJQL
	}

	return &Connector{
		client: httpclient.New(base+"/rest/api/3",
			httpclient.WithBasicAuth(j.Email, j.APIKey),
			httpclient.WithTimeout(cfg.HTTP.Timeout),
			httpclient.WithMaxRetries(cfg.HTTP.Retries),
		),
		jql: jql,
	}, nil
}

func (c *Connector) Name() string { return name }

// Fetch returns one ticket record per matching issue, in JQL order.
// Assignments describe current state, so every record is dated r.End.
func (c *Connector) Fetch(ctx context.Context, r model.DateRange) ([]model.Record, error) {
	var results []model.Record
	token := ""

	for page := 0; page < maxPages; page++ {
		req := searchRequest{
			JQL:           c.jql,
			Fields:        []string{"summary", "status", "updated"},
			MaxResults:    pageSize,
			NextPageToken: token,
		}
		var resp searchResponse
		if err := c.client.PostJSON(ctx, "/search/jql", req, &resp); err != nil {
			return nil, connector.FromHTTP(name, err)
		}

		for _, is := range resp.Issues {
			results = append(results, toRecord(is, r.End))
		}

		token = resp.NextPageToken
		if resp.IsLast || token == "" {
			break
		}
	}

	return results, nil
}

// Check verifies credentials against /myself and returns the account's display name.
func (c *Connector) Check(ctx context.Context) (string, error) {
	var me myself
	if err := c.client.GetJSON(ctx, "/myself", nil, &me); err != nil {
		return "", connector.FromHTTP(name, err)
	}
	if me.DisplayName == "" {
		return me.EmailAddress, nil
	}
	return fmt.Sprintf("%s <%s>", me.DisplayName, me.EmailAddress), nil
}

func toRecord(is issue, date model.Date) model.Record {
	summary := is.Fields.Summary
	if summary == "" {
		summary = "No summary available"
	}
	var md map[string]string
	if is.Fields.Status.Name != "" {
		md = map[string]string{"status": is.Fields.Status.Name}
	}
	return model.NewRecord(model.SourceTicket, date, is.Key, summary, md)
}
