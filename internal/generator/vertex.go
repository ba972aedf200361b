package generator

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

func init() {
	Register("vertex", func(cfg *config.Config) (Generator, error) {
		v, err := NewVertex(cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Vertex calls the Vertex AI generateContent endpoint with Application Default Credentials.
type Vertex struct {
	baseURL string
	path    string
	client  *httpclient.Client
}

// NewVertex resolves Application Default Credentials and builds the backend.
func NewVertex(cfg *config.Config) (*Vertex, error) {
	ts, err := google.DefaultTokenSource(context.Background(), cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("vertex: application default credentials: %w", err)
	}
	return newVertex(cfg, ts), nil
}

// newVertex sends every request through an oauth2 transport that attaches
// and refreshes the access token from ts.
func newVertex(cfg *config.Config, ts oauth2.TokenSource) *Vertex {
	base := strings.TrimSuffix(cfg.Vertex.Endpoint, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", cfg.Location)
	}
	path := fmt.Sprintf("/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		url.PathEscape(cfg.ProjectID), url.PathEscape(cfg.Location), url.PathEscape(cfg.Model))

	hc := oauth2.NewClient(context.Background(), oauth2.ReuseTokenSource(nil, ts))
	return &Vertex{
		baseURL: base,
		path:    path,
		client: httpclient.New(base,
			httpclient.WithHTTPClient(hc),
			httpclient.WithTimeout(cfg.HTTP.Timeout),
		),
	}
}

// Generate makes one generateContent call.
func (v *Vertex) Generate(ctx context.Context, prompt string) (string, error) {
	return generateContent(ctx, "vertex", v.client, v.path, prompt)
}
