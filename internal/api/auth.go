package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenLeeway is how long before expiry a cached token is considered stale.
const tokenLeeway = 30 * time.Second

// ClientCredentials obtains bearer tokens with the OAuth client-credentials grant
// and caches them in memory and, when CachePath is set, on disk.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Audience     string
	CachePath    string
	HTTPClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewClientCredentials creates a token source for the given API base URL.
func NewClientCredentials(baseURL, clientID, clientSecret, cachePath string) *ClientCredentials {
	return &ClientCredentials{
		TokenURL:     normalizeBaseURL(baseURL) + "/oauth/token",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Audience:     "https://api.firebolt.io",
		CachePath:    cachePath,
		HTTPClient:   &http.Client{Timeout: DefaultTimeout},
		now:          time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// cachedToken is the on-disk cache entry, keyed by client id.
type cachedToken struct {
	ClientID    string    `json:"client_id"`
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry"`
}

// Token implements TokenSource.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid(c.token, c.expiry) {
		return c.token, nil
	}
	if tok, exp, ok := c.readCache(); ok {
		c.token, c.expiry = tok, exp
		return tok, nil
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return "", fmt.Errorf("client id and client secret are required; run 'firebolt configure' or pass --client-id/--client-secret")
	}

	tok, exp, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token, c.expiry = tok, exp
	c.writeCache(tok, exp)
	return tok, nil
}

func (c *ClientCredentials) fetch(ctx context.Context) (string, time.Time, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	if c.Audience != "" {
		form.Set("audience", c.Audience)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("authenticate: %w", err)
	}
	if err := CheckError(resp); err != nil {
		return "", time.Time{}, fmt.Errorf("authenticate: %w", err)
	}
	data, err := ReadBody(resp)
	if err != nil {
		return "", time.Time{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", time.Time{}, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("authenticate: token response has no access_token")
	}
	return tr.AccessToken, c.expiryOf(tr), nil
}

// expiryOf prefers the token's own exp claim and falls back to expires_in.
func (c *ClientCredentials) expiryOf(tr tokenResponse) time.Time {
	if exp, ok := jwtExpiry(tr.AccessToken); ok {
		return exp
	}
	if tr.ExpiresIn > 0 {
		return c.now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return c.now().Add(time.Hour)
}

// jwtExpiry reads the exp claim without verifying the signature.
// Opaque tokens report ok=false.
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func (c *ClientCredentials) valid(token string, expiry time.Time) bool {
	return token != "" && c.now().Add(tokenLeeway).Before(expiry)
}

func (c *ClientCredentials) readCache() (string, time.Time, bool) {
	if c.CachePath == "" {
		return "", time.Time{}, false
	}
	data, err := os.ReadFile(c.CachePath)
	if err != nil {
		return "", time.Time{}, false
	}
	var entry cachedToken
	if json.Unmarshal(data, &entry) != nil || entry.ClientID != c.ClientID {
		return "", time.Time{}, false
	}
	if !c.valid(entry.AccessToken, entry.Expiry) {
		return "", time.Time{}, false
	}
	return entry.AccessToken, entry.Expiry, true
}

// writeCache ignores errors.
func (c *ClientCredentials) writeCache(token string, expiry time.Time) {
	if c.CachePath == "" {
		return
	}
	data, err := json.Marshal(cachedToken{ClientID: c.ClientID, AccessToken: token, Expiry: expiry})
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.CachePath), 0o700); err != nil {
		return
	}
	_ = os.WriteFile(c.CachePath, data, 0o600)
}

// Invalidate drops the cached token, in memory and on disk.
func (c *ClientCredentials) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.expiry = "", time.Time{}
	if c.CachePath != "" {
		_ = os.Remove(c.CachePath)
	}
}
