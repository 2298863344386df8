// Copyright 2026 The ds9samp Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ds9tools/ds9samp/ds9"
)

// runConsole drives the interactive command console until the user
// quits or the viewer goes away. The caller owns viewer teardown.
func runConsole(ctx context.Context, viewer *ds9.Viewer, title string) error {
	model := newConsoleModel(viewer, title)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		// Signal-driven exit; the deferred teardown handles the rest.
		return nil
	}
	return err
}

// consoleTheme holds the console's lipgloss styles. Colors are ANSI
// 256 codes for broad terminal compatibility.
type consoleTheme struct {
	title     lipgloss.Style
	prompt    lipgloss.Style
	command   lipgloss.Style
	output    lipgloss.Style
	errorText lipgloss.Style
	faint     lipgloss.Style
}

func defaultConsoleTheme() consoleTheme {
	return consoleTheme{
		title:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		prompt:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		command:   lipgloss.NewStyle().Foreground(lipgloss.Color("15")),
		output:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		errorText: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		faint:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// commandDoneMsg reports an asynchronously relayed command.
type commandDoneMsg struct {
	output string
	err    error
}

// viewerGoneMsg fires when the viewer's teardown completes behind the
// console's back (viewer closed, watchdog strike).
type viewerGoneMsg struct{}

type consoleModel struct {
	viewer *ds9.Viewer
	title  string
	theme  consoleTheme

	input   textinput.Model
	history viewport.Model
	lines   []string

	// recall holds submitted commands for up/down arrow recall.
	// recallPos == len(recall) means "editing a fresh line".
	recall    []string
	recallPos int

	busy  bool
	ready bool
}

func newConsoleModel(viewer *ds9.Viewer, title string) consoleModel {
	theme := defaultConsoleTheme()

	input := textinput.New()
	input.Prompt = "> "
	input.PromptStyle = theme.prompt
	input.Placeholder = `command ("get <cmd>" queries, "exit" quits)`
	input.CharLimit = 512
	input.Focus()

	return consoleModel{
		viewer: viewer,
		title:  title,
		theme:  theme,
		input:  input,
	}
}

func (m consoleModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitViewerGone(m.viewer))
}

// waitViewerGone blocks until the viewer's teardown completes, then
// tells the console to quit.
func waitViewerGone(viewer *ds9.Viewer) tea.Cmd {
	return func() tea.Msg {
		<-viewer.Done()
		return viewerGoneMsg{}
	}
}

// runViewerCommand relays one console line to the viewer off the UI
// goroutine. "get" lines are queries; everything else is sent as-is.
func runViewerCommand(viewer *ds9.Viewer, command string) tea.Cmd {
	return func() tea.Msg {
		if query, isQuery := strings.CutPrefix(command, "get "); isQuery {
			response, err := viewer.Get(context.Background(), strings.TrimSpace(query))
			if err != nil {
				return commandDoneMsg{err: err}
			}
			if err := response.Err(); err != nil {
				return commandDoneMsg{err: err}
			}
			return commandDoneMsg{output: formatResult(response)}
		}
		return commandDoneMsg{err: viewer.Set(context.Background(), command)}
	}
}

func (m consoleModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		m.input.Width = message.Width - lipgloss.Width(m.input.Prompt) - 1
		m.history.Width = message.Width
		// Title, input, and help each take one line.
		m.history.Height = max(message.Height-3, 1)
		m.refreshHistory()
		m.ready = true
		return m, nil

	case viewerGoneMsg:
		return m, tea.Quit

	case commandDoneMsg:
		m.busy = false
		switch {
		case message.err != nil:
			m.appendLines(m.theme.errorText.Render("error: " + message.err.Error()))
		case message.output != "":
			for _, line := range strings.Split(message.output, "\n") {
				m.appendLines(m.theme.output.Render(line))
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch message.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "enter":
			return m.submit()
		case "up":
			if m.recallPos > 0 {
				m.recallPos--
				m.input.SetValue(m.recall[m.recallPos])
				m.input.CursorEnd()
			}
			return m, nil
		case "down":
			if m.recallPos < len(m.recall) {
				m.recallPos++
				if m.recallPos == len(m.recall) {
					m.input.SetValue("")
				} else {
					m.input.SetValue(m.recall[m.recallPos])
					m.input.CursorEnd()
				}
			}
			return m, nil
		case "pgup":
			m.history.HalfViewUp()
			return m, nil
		case "pgdown":
			m.history.HalfViewDown()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(message)
	return m, cmd
}

// submit dispatches the current input line. One command is in flight
// at a time; the busy flag holds further submissions until the
// previous answer arrives, preserving command order.
func (m consoleModel) submit() (tea.Model, tea.Cmd) {
	command := strings.TrimSpace(m.input.Value())
	if command == "" || m.busy {
		return m, nil
	}
	if command == "exit" || command == "quit" {
		return m, tea.Quit
	}

	m.recall = append(m.recall, command)
	m.recallPos = len(m.recall)
	m.appendLines(m.theme.prompt.Render("> ") + m.theme.command.Render(command))
	m.input.SetValue("")
	m.busy = true
	return m, runViewerCommand(m.viewer, command)
}

func (m *consoleModel) appendLines(lines ...string) {
	m.lines = append(m.lines, lines...)
	m.refreshHistory()
}

func (m *consoleModel) refreshHistory() {
	m.history.SetContent(strings.Join(m.lines, "\n"))
	m.history.GotoBottom()
}

func (m consoleModel) View() string {
	if !m.ready {
		return "starting console..."
	}

	header := m.theme.title.Render("ds9samp") +
		m.theme.faint.Render(fmt.Sprintf("  %s · pid %d", m.title, m.viewer.PID()))

	help := m.theme.faint.Render(`enter send · up/down recall · "get <cmd>" query · exit quit`)
	if m.busy {
		help = m.theme.faint.Render("waiting for the viewer...")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.history.View(),
		m.input.View(),
		help,
	)
}
