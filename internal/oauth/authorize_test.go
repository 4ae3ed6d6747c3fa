package oauth

import (
	"net/url"
	"testing"
)

func TestEndpoints(t *testing.T) {
	e := Endpoints{
		BaseURL:  "https://id.example.test/oauth2/",
		ClientID: "abc",
		Scopes:   []string{"user:read:email", "chat:read"},
	}

	t.Run("Redirect URI", func(t *testing.T) {
		if got := RedirectURI(17041); got != "http://localhost:17041/callback" {
			t.Errorf("unexpected redirect uri %s", got)
		}
	})

	t.Run("Config", func(t *testing.T) {
		cfg := e.Config(27741)
		if cfg.Endpoint.AuthURL != "https://id.example.test/oauth2/authorize" {
			t.Errorf("unexpected auth url %s", cfg.Endpoint.AuthURL)
		}
		if cfg.RedirectURL != "http://localhost:27741/callback" {
			t.Errorf("unexpected redirect %s", cfg.RedirectURL)
		}
	})

	t.Run("Implicit URL", func(t *testing.T) {
		u, err := url.Parse(e.ImplicitURL(44927))
		if err != nil {
			t.Fatalf("unparseable login url: %v", err)
		}
		if u.Host != "id.example.test" || u.Path != "/oauth2/authorize" {
			t.Errorf("unexpected target %s", u)
		}

		q := u.Query()
		expected := map[string]string{
			"client_id":     "abc",
			"redirect_uri":  "http://localhost:44927/callback",
			"response_type": "token",
			"scope":         "user:read:email chat:read",
			"force_verify":  "true",
		}
		for k, v := range expected {
			if got := q.Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
	})
}
