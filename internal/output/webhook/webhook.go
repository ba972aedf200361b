package webhook

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/crimson-sun/standup/internal/connector/httpclient"
	"github.com/crimson-sun/standup/internal/model"
)

const defaultTimeout = 10 * time.Second

// Option configures a webhook Output.
type Option func(*Output)

// WithHeaders sets custom HTTP headers sent with every POST.
func WithHeaders(h map[string]string) Option {
	return func(o *Output) { o.headers = h }
}

// WithTimeout sets the HTTP client timeout. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *Output) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// payload is accepted by Slack, Mattermost and Google Chat incoming webhooks,
// which all read "text" and ignore the rest.
type payload struct {
	Text  string `json:"text"`
	Range string `json:"range"`
	RunID string `json:"run_id"`
	Model string `json:"model"`
}

// Output POSTs the summary to an incoming-webhook URL. One attempt per Write.
type Output struct {
	url     string
	headers map[string]string
	timeout time.Duration
	client  *httpclient.Client
}

// New creates a webhook output targeting the given URL.
func New(url string, opts ...Option) *Output {
	o := &Output{url: url, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(o)
	}
	copts := []httpclient.Option{httpclient.WithTimeout(o.timeout)}
	for k, v := range o.headers {
		copts = append(copts, httpclient.WithHeader(k, v))
	}
	o.client = httpclient.New(url, copts...)
	return o
}

// Name identifies the output by host only; webhook paths often embed secrets.
func (o *Output) Name() string {
	if u, err := url.Parse(o.url); err == nil && u.Host != "" {
		return "webhook " + u.Host
	}
	return "webhook"
}

func (o *Output) Write(ctx context.Context, s model.Summary) error {
	body := payload{Text: s.Text, Range: s.Range, RunID: s.RunID, Model: s.Model}
	// Webhooks commonly answer "ok" as plain text, so the response is not decoded.
	if err := o.client.PostJSON(ctx, "", body, nil); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
