// package formatter renders login history and token details as CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/twlogin/internal/models"
	"github.com/desertthunder/twlogin/internal/oauth"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

const timeLayout = "2006-01-02 15:04:05"

// Render formats attempts with the named format.
func Render(format string, attempts []*models.Attempt) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return HistoryToText(attempts)
	case FormatMarkdown, "md":
		return HistoryToMarkdown(attempts)
	case FormatCSV:
		return HistoryToCSV(attempts)
	case FormatJSON:
		return HistoryToJSON(attempts)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// HistoryToCSV converts attempts to CSV with columns: Sequence, ID, Mode, Port, Outcome, Message, Started, Finished, Duration
func HistoryToCSV(attempts []*models.Attempt) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Mode", "Port", "Outcome", "Message", "Started", "Finished", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, a := range attempts {
		record := []string{
			strconv.Itoa(a.Sequence()),
			a.ID(),
			a.Mode(),
			strconv.Itoa(a.Port()),
			a.Outcome(),
			a.Message(),
			a.StartedAt().Format(time.RFC3339),
			finishedString(a, time.RFC3339),
			FormatDuration(a.Duration()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// HistoryToMarkdown converts attempts to a Markdown table
func HistoryToMarkdown(attempts []*models.Attempt) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Login History\n\n")
	fmt.Fprintf(&buf, "**Attempts**: %d\n\n", len(attempts))
	if len(attempts) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Mode | Port | Outcome | Message | Started | Duration |\n")
	buf.WriteString("|---|------|------|---------|---------|---------|----------|\n")
	for _, a := range attempts {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s | %s | %s |\n",
			a.Sequence(),
			a.Mode(),
			portString(a.Port()),
			a.Outcome(),
			strings.ReplaceAll(a.Message(), "|", `\|`),
			a.StartedAt().Local().Format(timeLayout),
			FormatDuration(a.Duration()),
		)
	}

	return buf.Bytes(), nil
}

// HistoryToText converts attempts to plain text, one line per attempt
func HistoryToText(attempts []*models.Attempt) ([]byte, error) {
	var buf bytes.Buffer

	if len(attempts) == 0 {
		buf.WriteString("No login attempts recorded.\n")
		return buf.Bytes(), nil
	}

	for _, a := range attempts {
		fmt.Fprintf(&buf, "#%d %s %-8s %-13s port=%s", a.Sequence(), a.StartedAt().Local().Format(timeLayout), a.Mode(), a.Outcome(), portString(a.Port()))
		if d := a.Duration(); d > 0 {
			fmt.Fprintf(&buf, " took=%s", FormatDuration(d))
		}
		if a.Message() != "" {
			fmt.Fprintf(&buf, " %q", a.Message())
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

type attemptJSON struct {
	Sequence   int        `json:"sequence"`
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	Port       int        `json:"port,omitempty"`
	Outcome    string     `json:"outcome"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// HistoryToJSON converts attempts to an indented JSON array
func HistoryToJSON(attempts []*models.Attempt) ([]byte, error) {
	out := make([]attemptJSON, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptJSON{
			Sequence:   a.Sequence(),
			ID:         a.ID(),
			Mode:       a.Mode(),
			Port:       a.Port(),
			Outcome:    a.Outcome(),
			Message:    a.Message(),
			StartedAt:  a.StartedAt(),
			FinishedAt: a.FinishedAt(),
		})
	}
	return json.MarshalIndent(out, "", "  ")
}

// TokenInfoToText describes a validated token, warning when it expires within warnWithin.
func TokenInfoToText(info *oauth.TokenInfo, now time.Time, warnWithin time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Login:     %s\n", info.Login)
	fmt.Fprintf(&b, "User ID:   %s\n", info.UserID)
	fmt.Fprintf(&b, "Client ID: %s\n", info.ClientID)
	fmt.Fprintf(&b, "Scopes:    %s\n", strings.Join(info.Scopes, ", "))
	fmt.Fprintf(&b, "Expires:   %s (in %s)\n", info.ExpiresAt.Local().Format(timeLayout), FormatDuration(info.ExpiresAt.Sub(now)))
	if info.ExpiringWithin(now, warnWithin) {
		fmt.Fprintf(&b, "Warning:   token expires within %s\n", FormatDuration(warnWithin))
	}
	return b.String()
}

// FormatDuration renders d rounded for humans, e.g. "1.5s" or "2h0m0s".
func FormatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}

// WriteHistoryExport renders attempts in format and writes them to path.
func WriteHistoryExport(attempts []*models.Attempt, format, path string) error {
	data, err := Render(format, attempts)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func finishedString(a *models.Attempt, layout string) string {
	if a.FinishedAt() == nil {
		return ""
	}
	return a.FinishedAt().Format(layout)
}

func portString(port int) string {
	if port == 0 {
		return "-"
	}
	return strconv.Itoa(port)
}
