package jira

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/model"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Jira: config.JiraConfig{
			Email:    "dev@example.com",
			APIKey:   "secret",
			Endpoint: endpoint,
		},
	}
}

func testRange() model.DateRange {
	return model.DateRange{
		Start: model.Date{Year: 2024, Month: 1, Day: 12},
		End:   model.Date{Year: 2024, Month: 1, Day: 15},
	}
}

func TestNew_Disabled(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.JiraConfig
	}{
		{"no domain", config.JiraConfig{Email: "a@b.c", APIKey: "k"}},
		{"no email", config.JiraConfig{Domain: "x.atlassian.net", APIKey: "k"}},
		{"no key", config.JiraConfig{Domain: "x.atlassian.net", Email: "a@b.c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(&config.Config{Jira: tt.cfg})
			if !errors.Is(err, connector.ErrDisabled) {
				t.Fatalf("expected ErrDisabled, got %v", err)
			}
		})
	}
}

func TestFetch(t *testing.T) {
	var gotReq searchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/rest/api/3/search/jql" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "dev@example.com" || pass != "secret" {
			t.Errorf("unexpected basic auth %q/%q", user, pass)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"isLast": true,
			"issues": []map[string]any{
				{"key": "ABC-123", "fields": map[string]any{"summary": "Fix login", "status": map[string]any{"name": "In Progress"}}},
				{"key": "ABC-7", "fields": map[string]any{"summary": "", "status": map[string]any{"name": "To Do"}}},
			},
		})
	}))
	defer srv.Close()

	c, err := New(testConfig(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := testRange()
	records, err := c.Fetch(context.Background(), r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotReq.JQL != DefaultJQL {
		t.Fatalf("expected default JQL, got %q", gotReq.JQL)
	}
	if gotReq.MaxResults != pageSize {
		t.Fatalf("expected maxResults %d, got %d", pageSize, gotReq.MaxResults)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Source() != model.SourceTicket {
		t.Fatalf("expected ticket source, got %s", first.Source())
	}
	if first.Identifier() != "ABC-123" || first.Text() != "Fix login" {
		t.Fatalf("unexpected record %s %q", first.Identifier(), first.Text())
	}
	if first.Date() != r.End {
		t.Fatalf("expected record dated %s, got %s", r.End, first.Date())
	}
	if v := first.MetadataValue("status"); v != "In Progress" {
		t.Fatalf("expected status metadata, got %q", v)
	}
	if records[1].Text() != "No summary available" {
		t.Fatalf("expected placeholder summary, got %q", records[1].Text())
	}
}

func TestFetch_Pagination(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req searchRequest
		json.NewDecoder(r.Body).Decode(&req)
		n := calls.Add(1)
		switch n {
		case 1:
			if req.NextPageToken != "" {
				t.Errorf("first page should not send a token, got %q", req.NextPageToken)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"issues":        []map[string]any{{"key": "A-1", "fields": map[string]any{"summary": "one"}}},
				"nextPageToken": "page2",
			})
		default:
			if req.NextPageToken != "page2" {
				t.Errorf("expected token page2, got %q", req.NextPageToken)
			}
			json.NewEncoder(w).Encode(map[string]any{
				"issues": []map[string]any{{"key": "A-2", "fields": map[string]any{"summary": "two"}}},
				"isLast": true,
			})
		}
	}))
	defer srv.Close()

	c, _ := New(testConfig(srv.URL))
	records, err := c.Fetch(context.Background(), testRange())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
	if len(records) != 2 || records[1].Identifier() != "A-2" {
		t.Fatalf("unexpected records: %d", len(records))
	}
	if records[0].HasMetadata() {
		t.Fatal("expected no metadata when status is missing")
	}
}

func TestFetch_AuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"errorMessages":["bad token"]}`))
	}))
	defer srv.Close()

	c, _ := New(testConfig(srv.URL))
	_, err := c.Fetch(context.Background(), testRange())
	if !errors.Is(err, connector.ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
}

func TestFetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(testConfig(srv.URL))
	_, err := c.Fetch(context.Background(), testRange())
	if !errors.Is(err, connector.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/3/myself" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(myself{DisplayName: "Dev One", EmailAddress: "dev@example.com"})
	}))
	defer srv.Close()

	c, _ := New(testConfig(srv.URL))
	who, err := c.Check(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if who != "Dev One <dev@example.com>" {
		t.Fatalf("unexpected identity %q", who)
	}
}
