package connector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/crimson-sun/standup/internal/config"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
	"github.com/crimson-sun/standup/internal/model"
)

type stubConnector struct{ name string }

func (s stubConnector) Name() string { return s.name }

func (s stubConnector) Fetch(context.Context, model.DateRange) ([]model.Record, error) {
	return nil, nil
}

func TestFromHTTP(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unauthorized", &httpclient.APIError{StatusCode: 401}, ErrAuth},
		{"forbidden", &httpclient.APIError{StatusCode: 403}, ErrAuth},
		{"server error", &httpclient.APIError{StatusCode: 502}, ErrUnavailable},
		{"not found", &httpclient.APIError{StatusCode: 404}, ErrUnavailable},
		{"transport", errors.New("dial tcp: connection refused"), ErrUnavailable},
		{"wrapped unauthorized", fmt.Errorf("search: %w", &httpclient.APIError{StatusCode: 401}), ErrAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHTTP("jira", tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("FromHTTP(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("expected original error to stay in the chain: %v", got)
			}
			var se *SourceError
			if !errors.As(got, &se) || se.Connector != "jira" {
				t.Fatalf("expected *SourceError for jira, got %T", got)
			}
		})
	}

	if FromHTTP("jira", nil) != nil {
		t.Fatal("expected nil for nil error")
	}
	if got := FromHTTP("jira", context.Canceled); got != context.Canceled {
		t.Fatalf("expected context.Canceled to pass through, got %v", got)
	}
}

func TestSourceError_Message(t *testing.T) {
	err := Unavailable("git", errors.New("git: executable file not found"))
	want := "git connector: source unavailable: git: executable file not found"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestBuild(t *testing.T) {
	Register("test-enabled", func(*config.Config) (Connector, error) {
		return stubConnector{name: "test-enabled"}, nil
	})
	Register("test-disabled", func(*config.Config) (Connector, error) {
		return nil, Disabled("test-disabled", "no credentials")
	})
	Register("test-broken", func(*config.Config) (Connector, error) {
		return nil, errors.New("bad template")
	})

	conns, err := Build(&config.Config{}, []string{"test-disabled", "test-enabled"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conns) != 1 || conns[0].Name() != "test-enabled" {
		t.Fatalf("expected only the enabled connector, got %v", conns)
	}

	if _, err := Build(&config.Config{}, []string{"test-broken"}); err == nil {
		t.Fatal("expected constructor error to propagate")
	}
	if _, err := Build(&config.Config{}, []string{"no-such-connector"}); err == nil {
		t.Fatal("expected error for unknown connector")
	}
}

func TestProvidersSorted(t *testing.T) {
	Register("zz-last", func(*config.Config) (Connector, error) { return stubConnector{}, nil })
	Register("aa-first", func(*config.Config) (Connector, error) { return stubConnector{}, nil })

	names := Providers()
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("providers not sorted: %v", names)
		}
	}
}
