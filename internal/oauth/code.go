package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/twlogin/internal/shared"
	"golang.org/x/oauth2"
)

// CodeResponse is the provider's token payload for the user_token grant.
type CodeResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	Scope        []string `json:"scope"`
	TokenType    string   `json:"token_type"`
}

// Token converts the response into an [oauth2.Token] whose expiry is relative to now.
func (r *CodeResponse) Token(now time.Time) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(map[string]any{"scope": r.Scope})
}

// CodeClient performs the one-shot authorization-code ("user_token") exchange.
type CodeClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	UserID       string
	Scopes       []string
	HTTPClient   *http.Client
}

// NewCodeClient creates a [CodeClient] whose requests are bounded by timeout.
func NewCodeClient(cfg shared.OAuthConfig, timeout time.Duration) *CodeClient {
	return &CodeClient{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		UserID:       cfg.TestUserID,
		Scopes:       cfg.Scopes,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

func (c *CodeClient) requestURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/authorize")
	if err != nil {
		return "", fmt.Errorf("%w: oauth base url: %v", shared.ErrInvalidConfig, err)
	}
	q := u.Query()
	q.Set("client_id", c.ClientID)
	q.Set("client_secret", c.ClientSecret)
	q.Set("grant_type", "user_token")
	q.Set("scope", strings.Join(c.Scopes, " "))
	q.Set("user_id", c.UserID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Exchange requests a token and returns it with the raw response. It never retries.
func (c *CodeClient) Exchange(ctx context.Context) (*oauth2.Token, *CodeResponse, error) {
	endpoint, err := c.requestURL()
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: shared.DefaultHTTPTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: status %s: %s", shared.ErrProtocol, resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed CodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, nil, fmt.Errorf("%w: error parsing response: %v", shared.ErrProtocol, err)
	}
	if parsed.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: response has no access_token", shared.ErrMissingToken)
	}

	return parsed.Token(time.Now()), &parsed, nil
}
