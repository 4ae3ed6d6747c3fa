package oauth

import (
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Endpoints describes the provider's OAuth base and the client registered with it.
type Endpoints struct {
	BaseURL  string
	ClientID string
	Scopes   []string
}

// RedirectURI is the local callback address registered for port.
func RedirectURI(port int) string {
	return fmt.Sprintf("http://localhost:%d/callback", port)
}

// Config returns the [oauth2.Config] for a callback server listening on port.
func (e Endpoints) Config(port int) *oauth2.Config {
	base := strings.TrimRight(e.BaseURL, "/")
	return &oauth2.Config{
		ClientID:    e.ClientID,
		RedirectURL: RedirectURI(port),
		Scopes:      e.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + "/authorize",
			TokenURL: base + "/token",
		},
	}
}

// ImplicitURL builds the implicit-grant authorize URL for a callback server listening on port.
//
// The provider is asked to re-prompt (force_verify) so switching accounts is always possible.
func (e Endpoints) ImplicitURL(port int) string {
	return e.Config(port).AuthCodeURL("",
		oauth2.SetAuthURLParam("response_type", "token"),
		oauth2.SetAuthURLParam("force_verify", "true"),
	)
}
