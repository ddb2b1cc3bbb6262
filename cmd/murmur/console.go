package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxTranscript bounds the in-memory scrollback.
const maxTranscript = 500

// displayMsg carries one line popped from the display queue.
type displayMsg string

// displayClosedMsg signals that the display queue shut down.
type displayClosedMsg struct{}

// waitForDisplay returns a command that blocks on the display queue.
func waitForDisplay(ctx context.Context, s *consoleSession) tea.Cmd {
	return func() tea.Msg {
		msg, err := s.display.Pop(ctx)
		if err != nil {
			return displayClosedMsg{}
		}
		return displayMsg(msg.Text)
	}
}

// consoleModel is the Bubble Tea model for the interactive console.
type consoleModel struct {
	ctx     context.Context
	session *consoleSession

	input      textinput.Model
	transcript []string
	width      int
	height     int
	theme      consoleTheme
}

// consoleTheme defines the visual styling for the console.
type consoleTheme struct {
	Prompt lipgloss.Style
	Echo   lipgloss.Style
	Notice lipgloss.Style
	Mode   lipgloss.Style
}

func defaultConsoleTheme() consoleTheme {
	return consoleTheme{
		Prompt: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		Echo:   lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Notice: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Mode:   lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
	}
}

func newConsoleModel(ctx context.Context, session *consoleSession) consoleModel {
	input := textinput.New()
	input.Placeholder = "/help"
	input.Focus()
	return consoleModel{
		ctx:     ctx,
		session: session,
		input:   input,
		theme:   defaultConsoleTheme(),
	}
}

// Init implements tea.Model.
func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForDisplay(m.ctx, m.session))
}

// Update implements tea.Model.
func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case displayMsg:
		m.append(string(msg))
		return m, waitForDisplay(m.ctx, m.session)

	case displayClosedMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			if strings.TrimSpace(line) != "" {
				m.append(m.theme.Echo.Render("> " + line))
			}
			if feedback := m.session.submit(line); feedback != "" {
				m.append(m.theme.Notice.Render(feedback))
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// append adds one transcript line, trimming old scrollback.
func (m *consoleModel) append(line string) {
	m.transcript = append(m.transcript, line)
	if len(m.transcript) > maxTranscript {
		m.transcript = m.transcript[len(m.transcript)-maxTranscript:]
	}
}

// View implements tea.Model.
func (m consoleModel) View() string {
	mode := m.session.node.Mode()
	header := m.theme.Prompt.Render("murmur") + " " + m.theme.Mode.Render("["+mode+"]")

	// Show whatever scrollback fits above the input line.
	visible := m.transcript
	if m.height > 3 && len(visible) > m.height-3 {
		visible = visible[len(visible)-(m.height-3):]
	}

	return fmt.Sprintf("%s\n%s\n%s",
		header,
		strings.Join(visible, "\n"),
		m.input.View(),
	)
}

// runConsole runs the interactive console until the user quits or the
// display queue shuts down.
func runConsole(ctx context.Context, session *consoleSession) error {
	p := tea.NewProgram(newConsoleModel(ctx, session), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
