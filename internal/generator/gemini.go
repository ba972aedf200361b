package generator

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

func init() {
	Register("gemini", func(cfg *config.Config) (Generator, error) {
		g, err := NewGemini(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	})
}

// Gemini calls the Generative Language API with an API key.
type Gemini struct {
	client *httpclient.Client
	path   string
}

// NewGemini builds the backend from GEMINI_API_KEY and the model name.
func NewGemini(cfg *config.Config) (*Gemini, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY not set")
	}
	base := strings.TrimSuffix(cfg.Gemini.Endpoint, "/")
	if base == "" {
		base = geminiEndpoint
	}
	return &Gemini{
		client: httpclient.New(base,
			httpclient.WithHeader("x-goog-api-key", cfg.Gemini.APIKey),
			httpclient.WithTimeout(cfg.HTTP.Timeout),
		),
		path: "/models/" + url.PathEscape(cfg.Model) + ":generateContent",
	}, nil
}

// Generate makes one generateContent call.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	return generateContent(ctx, "gemini", g.client, g.path, prompt)
}
