package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/twlogin/internal/shared"
)

// PromptOptions configures a [Prompt].
type PromptOptions struct {
	// OnDismiss runs when the user closes the prompt before the attempt settled.
	OnDismiss func()
	// Browser opens the login URL. Defaults to [shared.OpenBrowser].
	Browser func(string) error
	// NoBrowser only prints the URL.
	NoBrowser bool
	Input     io.Reader
	Output    io.Writer
	Logger    *log.Logger
}

// Prompt is a terminal login surface backed by a bubbletea program.
type Prompt struct {
	opts   PromptOptions
	logger *log.Logger

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	closed  bool
}

// NewPrompt creates a [Prompt]; nothing is drawn until [Prompt.Open].
func NewPrompt(opts PromptOptions) *Prompt {
	if opts.Browser == nil {
		opts.Browser = shared.OpenBrowser
	}
	return &Prompt{opts: opts, logger: shared.WithLogger(opts.Logger, "component", "prompt")}
}

// Open starts the prompt for loginURL and launches the browser.
func (p *Prompt) Open(loginURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.program != nil {
		return fmt.Errorf("%w: prompt already open", shared.ErrLoginInProgress)
	}

	var browser func(string) error
	if !p.opts.NoBrowser {
		browser = p.opts.Browser
	}
	m := newModel(loginURL, browser, p.opts.OnDismiss)

	var popts []tea.ProgramOption
	if p.opts.Input != nil {
		popts = append(popts, tea.WithInput(p.opts.Input))
	}
	if p.opts.Output != nil {
		popts = append(popts, tea.WithOutput(p.opts.Output))
	}

	p.program = tea.NewProgram(m, popts...)
	p.done = make(chan struct{})
	p.closed = false

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)
		if _, err := program.Run(); err != nil {
			p.logger.Error("login prompt exited", "error", err)
		}
	}(p.program, p.done)

	return nil
}

// Close exits the prompt without running the dismissal callback. It is safe to call repeatedly.
func (p *Prompt) Close() error {
	p.mu.Lock()
	program, done := p.program, p.done
	if program == nil || p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	program.Send(closeMsg())
	<-done
	return nil
}

// Wait blocks until the prompt program has exited and the terminal is restored.
func (p *Prompt) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

// model is the bubbletea state of the login prompt.
type model struct {
	loginURL   string
	browser    func(string) error
	onDismiss  func()
	spinner    spinner.Model
	help       help.Model
	keys       keyMap
	browserErr error
	dismissed  bool
	closed     bool
}

func newModel(loginURL string, browser func(string) error, onDismiss func()) *model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = styles.title.UnsetMarginBottom()
	return &model{
		loginURL:  loginURL,
		browser:   browser,
		onDismiss: onDismiss,
		spinner:   s,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openBrowser())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.dismissed = true
			if m.onDismiss != nil {
				m.onDismiss()
			}
			return m, tea.Quit
		case key.Matches(msg, m.keys.open):
			return m, m.openBrowser()
		}
		return m, nil

	case Msg:
		switch msg.kind {
		case MsgClose:
			m.closed = true
			return m, tea.Quit
		case MsgBrowserOpened:
			m.browserErr, _ = msg.data.(error)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *model) View() string {
	if m.closed {
		return ""
	}
	if m.dismissed {
		return styles.warn.Render("Login window closed.") + "\n"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render("Log in with your browser"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s Waiting for the provider to redirect back...\n\n", m.spinner.View())
	b.WriteString("If the browser did not open, visit:\n")
	b.WriteString(styles.link.Render(m.loginURL))
	b.WriteString("\n")
	if m.browserErr != nil {
		fmt.Fprintf(&b, "\n%s\n", styles.err.Render(fmt.Sprintf("Could not open browser: %v", m.browserErr)))
	}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *model) openBrowser() tea.Cmd {
	if m.browser == nil {
		return nil
	}
	open, url := m.browser, m.loginURL
	return func() tea.Msg {
		return browserOpenedMsg(open(url))
	}
}
