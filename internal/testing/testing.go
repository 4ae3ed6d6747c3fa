// package testing contains shared testing utilities
package testing

import (
	"errors"
	"net"
	"net/http"
	"os"
	"sync"
	"testing"
)

// MockSurface is a test double for [oauth.Surface] that records every call.
type MockSurface struct {
	mu       sync.Mutex
	opened   []string
	closes   int
	OpenErr  error
	CloseErr error
	// OnOpen, when set, runs after a successful Open (e.g. to simulate the provider redirect).
	OnOpen func(loginURL string)
}

func (m *MockSurface) Open(loginURL string) error {
	m.mu.Lock()
	if m.OpenErr != nil {
		m.mu.Unlock()
		return m.OpenErr
	}
	m.opened = append(m.opened, loginURL)
	hook := m.OnOpen
	m.mu.Unlock()

	if hook != nil {
		hook(loginURL)
	}
	return nil
}

func (m *MockSurface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return m.CloseErr
}

// Opened returns the URLs passed to Open.
func (m *MockSurface) Opened() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.opened...)
}

// Closes returns how many times Close was called.
func (m *MockSurface) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// MockDispatcher records the results reported by a callback handler.
type MockDispatcher struct {
	mu       sync.Mutex
	Tokens   []string
	Messages []string
}

func (d *MockDispatcher) LoggedIn(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Tokens = append(d.Tokens, token)
}

func (d *MockDispatcher) Failed(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Messages = append(d.Messages, message)
}

// Calls returns copies of the recorded tokens and failure messages.
func (d *MockDispatcher) Calls() (tokens, messages []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.Tokens...), append([]string(nil), d.Messages...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// FreePort returns a loopback TCP port that was free a moment ago.
func FreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find a free port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()
	return port
}

// OccupyPort binds a loopback port and keeps it bound until the test ends.
func OccupyPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to occupy a port: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
