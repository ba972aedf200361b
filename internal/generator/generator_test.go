package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2"

	"github.com/crimson-sun/standup/internal/config"
)

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": "STOP",
		}},
	}
}

type fakeBackend struct {
	calls   atomic.Int32
	status  int
	body    any
	lastReq generateRequest
	lastHdr http.Header
	path    string
}

func (f *fakeBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.path = r.URL.Path
		f.lastHdr = r.Header.Clone()
		json.NewDecoder(r.Body).Decode(&f.lastReq)
		if f.status != 0 {
			w.WriteHeader(f.status)
		}
		json.NewEncoder(w).Encode(f.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func geminiConfig(endpoint string) *config.Config {
	return &config.Config{
		Backend: "gemini",
		Model:   "gemini-2.5-flash",
		Gemini:  config.GeminiConfig{APIKey: "key-1", Endpoint: endpoint},
	}
}

func TestGemini_Generate(t *testing.T) {
	f := &fakeBackend{body: textResponse("  Yesterday: fixed auth.\n")}
	srv := f.server(t)

	g, err := New(geminiConfig(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := g.Generate(context.Background(), "prompt text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Yesterday: fixed auth." {
		t.Fatalf("expected trimmed text, got %q", out)
	}
	if f.path != "/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("unexpected path %s", f.path)
	}
	if f.lastHdr.Get("x-goog-api-key") != "key-1" {
		t.Fatal("expected API key header")
	}
	if len(f.lastReq.Contents) != 1 || f.lastReq.Contents[0].Parts[0].Text != "prompt text" {
		t.Fatalf("unexpected request %+v", f.lastReq)
	}
}

func TestGemini_MissingKey(t *testing.T) {
	cfg := geminiConfig("")
	cfg.Gemini.APIKey = ""
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestGenerate_EmptyPromptStillCalls(t *testing.T) {
	f := &fakeBackend{body: textResponse("Nothing to report.")}
	g, _ := NewGemini(geminiConfig(f.server(t).URL))

	out, err := g.Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("empty prompt alone must not fail: %v", err)
	}
	if out != "Nothing to report." || f.calls.Load() != 1 {
		t.Fatalf("expected one call, got %d (%q)", f.calls.Load(), out)
	}
}

func TestGenerate_EmptyOutput(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"whitespace", textResponse("  \n ")},
		{"no candidates", map[string]any{"candidates": []any{}}},
		{"blocked", map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeBackend{body: tt.body}
			g, _ := NewGemini(geminiConfig(f.server(t).URL))
			_, err := g.Generate(context.Background(), "p")
			if !errors.Is(err, ErrGeneration) || !IsEmptyResponse(err) {
				t.Fatalf("expected empty-response GenerationError, got %v", err)
			}
			var ge *GenerationError
			if !errors.As(err, &ge) || ge.Backend != "gemini" {
				t.Fatalf("expected *GenerationError for gemini, got %T", err)
			}
		})
	}
}

func TestGenerate_BackendFailureSingleAttempt(t *testing.T) {
	f := &fakeBackend{status: http.StatusServiceUnavailable, body: map[string]any{"error": "overloaded"}}
	g, _ := NewGemini(geminiConfig(f.server(t).URL))

	_, err := g.Generate(context.Background(), "p")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected exactly one call, got %d", f.calls.Load())
	}
}

func TestVertex_Generate(t *testing.T) {
	f := &fakeBackend{body: textResponse("done")}
	srv := f.server(t)

	cfg := &config.Config{
		Backend:   "vertex",
		ProjectID: "my-proj",
		Location:  "europe-west4",
		Model:     "gemini-2.5-flash",
		Vertex:    config.VertexConfig{Endpoint: srv.URL},
	}
	v := newVertex(cfg, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "adc-token"}))

	out, err := v.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}
	want := "/projects/my-proj/locations/europe-west4/publishers/google/models/gemini-2.5-flash:generateContent"
	if f.path != want {
		t.Fatalf("path = %s, want %s", f.path, want)
	}
	if f.lastHdr.Get("Authorization") != "Bearer adc-token" {
		t.Fatalf("unexpected auth header %q", f.lastHdr.Get("Authorization"))
	}
}

type failingTokens struct{}

func (failingTokens) Token() (*oauth2.Token, error) {
	return nil, errors.New("no credentials")
}

func TestVertex_TokenError(t *testing.T) {
	f := &fakeBackend{body: textResponse("done")}
	srv := f.server(t)

	v := newVertex(&config.Config{ProjectID: "p", Location: "l", Model: "m", Vertex: config.VertexConfig{Endpoint: srv.URL}},
		failingTokens{})
	_, err := v.Generate(context.Background(), "p")
	if !errors.Is(err, ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatalf("expected no request without a token, got %d", f.calls.Load())
	}
}

func TestVertex_DefaultEndpoint(t *testing.T) {
	v := newVertex(&config.Config{ProjectID: "p", Location: "us-central1", Model: "m"},
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "x"}))
	if v.baseURL != "https://us-central1-aiplatform.googleapis.com/v1" {
		t.Fatalf("unexpected base URL %s", v.baseURL)
	}
}

func TestNew_UnknownBackend(t *testing.T) {
	if _, err := New(&config.Config{Backend: "nope"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	names := Backends()
	if len(names) != 2 || names[0] != "gemini" || names[1] != "vertex" {
		t.Fatalf("unexpected backends %v", names)
	}
}
