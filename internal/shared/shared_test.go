package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

func TestMaskToken(t *testing.T) {
	tc := []struct {
		name  string
		token string
		want  string
	}{
		{name: "empty", token: "", want: ""},
		{name: "short", token: "abc", want: "***"},
		{name: "exactly four", token: "abcd", want: "****"},
		{name: "long", token: "tok123456", want: "*****3456"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.token); got != tt.want {
				t.Errorf("MaskToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("GenerateID() returned invalid uuid %q: %v", id, err)
	}
	if id == GenerateID() {
		t.Error("GenerateID() returned the same id twice")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "component", "test")
	SetLogLevel(logger, log.DebugLevel)

	logger.Debug("hello", "port", 17041)

	out := buf.String()
	for _, want := range []string{"hello", "component=test", "port=17041"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got %q", want, out)
		}
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "twlogin.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Info("written to file", "attempt", "abc")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("expected log line in file, got %q", data)
	}
}
