package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	tu "github.com/desertthunder/twlogin/internal/testing"
)

func newTestRouter(d Dispatcher) *BasicRouter {
	logger := log.New(io.Discard)
	return newRouter(d, logger, Logging(logger), NoStore)
}

func TestFinishHandler(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		header     string
		wantStatus int
		wantBody   string
		wantTokens []string
		wantFailed []string
	}{
		{
			name:       "Fragment Token",
			header:     "http://localhost:17041/callback#access_token=tok123&scope=read",
			wantStatus: http.StatusOK,
			wantBody:   "OK",
			wantTokens: []string{"tok123"},
		},
		{
			name:       "Query Token Wins",
			header:     "http://localhost:17041/callback?access_token=fromquery#access_token=fromfragment",
			wantStatus: http.StatusOK,
			wantBody:   "OK",
			wantTokens: []string{"fromquery"},
		},
		{
			name:       "Provider Error",
			header:     "http://localhost:17041/callback?error=access_denied&error_description=denied",
			wantStatus: http.StatusNotFound,
			wantBody:   "Not Found",
			wantFailed: []string{"access_denied"},
		},
		{
			name:       "Fragment Error",
			header:     "http://localhost:17041/callback#error=redirect_mismatch",
			wantStatus: http.StatusNotFound,
			wantBody:   "Not Found",
			wantFailed: []string{"redirect_mismatch"},
		},
		{
			name:       "No Token",
			header:     "http://localhost:17041/callback",
			wantStatus: http.StatusNotFound,
			wantBody:   "Not Found",
			wantFailed: []string{""},
		},
		{
			name:       "Missing Header",
			wantStatus: http.StatusNotFound,
			wantBody:   "Not Found",
			wantFailed: []string{""},
		},
		{
			name:       "Malformed Header",
			header:     "http://[::1",
			wantStatus: http.StatusNotFound,
			wantBody:   "Not Found",
			wantFailed: []string{""},
		},
		{
			name:       "Preflight Is Rejected",
			method:     http.MethodOptions,
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   "Method not allowed",
		},
		{
			name:       "Post Is Rejected",
			method:     http.MethodPost,
			header:     "http://localhost:17041/callback#access_token=tok123",
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   "Method not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &tu.MockDispatcher{}
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, "/finish", nil)
			if tt.header != "" {
				req.Header.Set(FullURLHeader, tt.header)
			}
			rec := httptest.NewRecorder()

			newTestRouter(d).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, body)
			}
			if tt.wantStatus == http.StatusMethodNotAllowed && rec.Header().Get("Allow") != http.MethodGet {
				t.Errorf("expected Allow %q, got %q", http.MethodGet, rec.Header().Get("Allow"))
			}

			tokens, messages := d.Calls()
			if strings.Join(tokens, ",") != strings.Join(tt.wantTokens, ",") || len(tokens) != len(tt.wantTokens) {
				t.Errorf("expected tokens %v, got %v", tt.wantTokens, tokens)
			}
			if strings.Join(messages, ",") != strings.Join(tt.wantFailed, ",") || len(messages) != len(tt.wantFailed) {
				t.Errorf("expected failures %v, got %v", tt.wantFailed, messages)
			}
		})
	}
}

func TestPageHandler(t *testing.T) {
	for _, path := range []string{"/callback", "/", "/anything/else"} {
		t.Run(path, func(t *testing.T) {
			d := &tu.MockDispatcher{}
			rec := httptest.NewRecorder()
			newTestRouter(d).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("expected html, got %q", ct)
			}
			body := rec.Body.String()
			if !strings.Contains(body, `fetch("/finish"`) || !strings.Contains(body, "window.location.href") {
				t.Error("page should forward its location to /finish")
			}
			if tokens, messages := d.Calls(); len(tokens)+len(messages) != 0 {
				t.Error("serving the page must not dispatch anything")
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("No Store", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NoStore(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Header().Get("Cache-Control") != "no-store" {
			t.Errorf("expected no-store, got %q", rec.Header().Get("Cache-Control"))
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		handler := RateLimit(NewLimiter(0.5))(ok)

		first := httptest.NewRecorder()
		handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
		if first.Code != http.StatusTeapot {
			t.Fatalf("first request should pass, got %d", first.Code)
		}

		second := httptest.NewRecorder()
		handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
		if second.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", second.Code)
		}
	})

	t.Run("Unlimited", func(t *testing.T) {
		handler := RateLimit(NewLimiter(0))(ok)
		for range 50 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			if rec.Code != http.StatusTeapot {
				t.Fatalf("expected pass-through, got %d", rec.Code)
			}
		}
	})

	t.Run("Logging Passes Status Through", func(t *testing.T) {
		var buf strings.Builder
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		rec := httptest.NewRecorder()
		Logging(logger)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?access_token=secret", nil))
		if rec.Code != http.StatusTeapot {
			t.Errorf("expected 418, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "418") {
			t.Errorf("expected status in log output, got %q", buf.String())
		}
		if strings.Contains(buf.String(), "secret") {
			t.Error("query string must not be logged")
		}
	})
}

func TestBasicRouterMethods(t *testing.T) {
	router := NewBasicRouter()
	router.Handle("GET,HEAD", "/only-get", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/only-get", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/only-get", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if rec.Header().Get("Allow") != "GET, HEAD" {
		t.Errorf("unexpected Allow header %q", rec.Header().Get("Allow"))
	}
}
