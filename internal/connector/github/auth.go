package github

import (
	"context"
	"crypto/rsa"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crimson-sun/standup/internal/connector"
	"github.com/crimson-sun/standup/internal/connector/httpclient"
)

const (
	jwtLifetime = 10 * time.Minute
	// Installation tokens are refreshed this long before they expire.
	tokenMargin = 5 * time.Minute
	// Used when the exchange response carries no expiry.
	defaultTokenLifetime = time.Hour
)

// tokenSource yields the bearer token for API calls.
type tokenSource interface {
	Token(ctx context.Context) (string, error)
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

// appTokenSource exchanges a GitHub App JWT for an installation access token
// and caches it until shortly before expiry.
type appTokenSource struct {
	baseURL        string
	appID          string
	installationID string
	key            *rsa.PrivateKey
	timeout        time.Duration
	now            func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

type accessTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read github private key: %w", err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse github private key %s: %w", path, err)
	}
	return key, nil
}

func (s *appTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Before(s.expires.Add(-tokenMargin)) {
		return s.token, nil
	}

	signed, err := s.signJWT(now)
	if err != nil {
		return "", connector.Auth(name, err)
	}

	client := httpclient.New(s.baseURL,
		httpclient.WithBearer(signed),
		httpclient.WithHeader("Accept", "application/vnd.github+json"),
		httpclient.WithTimeout(s.timeout),
	)
	var resp accessTokenResponse
	path := fmt.Sprintf("/app/installations/%s/access_tokens", s.installationID)
	if err := client.PostJSON(ctx, path, nil, &resp); err != nil {
		return "", connector.FromHTTP(name, err)
	}
	if resp.Token == "" {
		return "", connector.Auth(name, fmt.Errorf("installation %s returned no token", s.installationID))
	}

	s.token = resp.Token
	s.expires = resp.ExpiresAt
	if s.expires.IsZero() {
		s.expires = now.Add(defaultTokenLifetime)
	}
	return s.token, nil
}

func (s *appTokenSource) signJWT(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer: s.appID,
		// Backdated to tolerate clock drift between us and GitHub.
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(jwtLifetime)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign app jwt: %w", err)
	}
	return signed, nil
}
