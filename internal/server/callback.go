package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/oauth"
)

// FullURLHeader carries the browser's complete location, fragment included.
const FullURLHeader = "X-Full-Url"

const finishPath = "/finish"

// PageHandler serves the page that forwards the browser location to /finish.
type PageHandler struct{}

func (PageHandler) Routes() []string { return []string{"/"} }

func (PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, callbackPage)
}

// FinishHandler extracts the token from the forwarded URL and reports the result.
type FinishHandler struct {
	dispatcher Dispatcher
	logger     *log.Logger
}

// NewFinishHandler creates a [FinishHandler] reporting to d.
func NewFinishHandler(d Dispatcher, logger *log.Logger) *FinishHandler {
	return &FinishHandler{dispatcher: d, logger: logger}
}

func (h *FinishHandler) Routes() []string { return []string{finishPath} }

// ServeHTTP answers 200 "OK" when the forwarded URL carries an access token and 404 "Not Found" otherwise.
//
// A missing or malformed header counts as a callback without a token.
func (h *FinishHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.Header.Get(FullURLHeader)

	u, err := url.Parse(raw)
	if raw == "" || err != nil {
		h.logger.Warn("finish request without a usable url", "header", FullURLHeader)
		h.dispatcher.Failed("")
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if token, ok := oauth.Extract(u); ok {
		h.dispatcher.LoggedIn(token)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
		return
	}

	msg := oauth.ErrorMessage(u)
	h.logger.Warn("callback did not contain an access token", "error", msg)
	h.dispatcher.Failed(msg)
	http.Error(w, "Not Found", http.StatusNotFound)
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>twlogin</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #0e0e10; color: #efeff1; }
        .container { text-align: center; padding: 2rem; border-radius: 8px; background: #18181b; }
        h1 { color: #9147ff; margin: 0 0 1rem 0; }
        p { color: #adadb8; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 id="title">Finishing login&hellip;</h1>
        <p id="detail">Please wait.</p>
    </div>
    <script>
        fetch("/finish", { headers: { "X-Full-Url": window.location.href } })
            .then(function (res) {
                if (res.ok) {
                    document.getElementById("title").textContent = "Login complete";
                    document.getElementById("detail").textContent = "You can close this window and return to the terminal.";
                } else {
                    document.getElementById("title").textContent = "Login failed";
                    document.getElementById("detail").textContent = "No access token was returned. Close this window and try again.";
                }
            })
            .catch(function () {
                document.getElementById("title").textContent = "Login failed";
                document.getElementById("detail").textContent = "The login helper is no longer running.";
            });
    </script>
</body>
</html>
`
