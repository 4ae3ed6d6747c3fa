package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/twlogin/internal/shared"
	"golang.org/x/oauth2"
)

// TokenInfo describes a token as reported by the provider's validate endpoint.
type TokenInfo struct {
	ClientID  string    `json:"client_id"`
	Login     string    `json:"login"`
	Scopes    []string  `json:"scopes"`
	UserID    string    `json:"user_id"`
	ExpiresIn int       `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiringWithin reports whether the token expires before now+d.
func (i *TokenInfo) ExpiringWithin(now time.Time, d time.Duration) bool {
	return i.ExpiresAt.Before(now.Add(d))
}

// Validator checks access tokens against {base}/validate.
type Validator struct {
	BaseURL string
	// Base is the transport-level client; its Transport is wrapped with the token source.
	Base *http.Client
	now  func() time.Time
}

// NewValidator creates a [Validator] whose requests are bounded by timeout.
func NewValidator(baseURL string, timeout time.Duration) *Validator {
	return &Validator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Base:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// Validate fetches [TokenInfo] for token. The provider expects "Authorization: OAuth <token>".
func (v *Validator) Validate(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrMissingArgument)
	}

	if v.Base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, v.Base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "OAuth"})
	client := oauth2.NewClient(ctx, src)
	if v.Base != nil {
		client.Timeout = v.Base.Timeout
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(v.BaseURL, "/")+"/validate", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: %s", shared.ErrInvalidCredentials, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %s", shared.ErrProtocol, resp.Status)
	}

	var info TokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("%w: error parsing response: %v", shared.ErrProtocol, err)
	}

	now := time.Now
	if v.now != nil {
		now = v.now
	}
	info.ExpiresAt = now().Add(time.Duration(info.ExpiresIn) * time.Second)

	return &info, nil
}
