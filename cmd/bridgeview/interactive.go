package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/module-bridge/graph"
	"github.com/wippyai/module-bridge/manifest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	err      error
	sess     *session
	manifest *manifest.Manifest
	logger   *zap.Logger
	message  string
	input    textinput.Model
	cfg      config
	selected int
	state    modelState
	busy     bool
}

type modelState int

const (
	stateBrowse modelState = iota
	stateEdit
)

func newInteractiveModel(m *manifest.Manifest, cfg config, logger *zap.Logger) *interactiveModel {
	return &interactiveModel{
		manifest: m,
		cfg:      cfg,
		logger:   logger,
		state:    stateBrowse,
	}
}

type loadedMsg struct {
	err  error
	sess *session
}

type evaluatedMsg struct {
	err error
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.openBridge
}

func (m *interactiveModel) openBridge() tea.Msg {
	ctx := context.Background()
	s, err := openSession(ctx, m.manifest, m.logger)
	if err != nil {
		return loadedMsg{err: err}
	}
	pairs, err := parseSets(m.cfg.sets)
	if err != nil {
		s.Close(ctx)
		return loadedMsg{err: err}
	}
	for _, p := range pairs {
		if err := s.Set(p[0], p[1]); err != nil {
			s.Close(ctx)
			return loadedMsg{err: err}
		}
	}
	return loadedMsg{sess: s}
}

func (m *interactiveModel) evaluate() tea.Msg {
	ctx := context.Background()
	if m.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.timeout)
		defer cancel()
	}
	return evaluatedMsg{err: m.sess.Evaluate(ctx)}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateEdit {
			return m.updateEdit(msg)
		}

		switch msg.String() {
		case "ctrl+c", "q":
			if m.sess != nil {
				m.sess.Close(context.Background())
			}
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.sess != nil && m.selected < len(m.sess.Names())-1 {
				m.selected++
			}

		case "enter":
			if m.sess != nil {
				m.startEdit()
			}

		case "e":
			if m.sess != nil && !m.busy {
				m.busy = true
				m.message = ""
				return m, m.evaluate
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess

	case evaluatedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.message = "evaluated"
		}
	}

	return m, nil
}

func (m *interactiveModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.sess.Close(context.Background())
		return m, tea.Quit

	case "esc":
		m.state = stateBrowse
		return m, nil

	case "enter":
		name := m.sess.Names()[m.selected]
		if err := m.sess.Set(name, m.input.Value()); err != nil {
			m.err = err
		} else {
			m.err = nil
			m.message = fmt.Sprintf("set %s", name)
		}
		m.state = stateBrowse
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) startEdit() {
	name := m.sess.Names()[m.selected]
	ti := textinput.New()
	ti.Placeholder = m.sess.TypeOf(name)
	ti.Prompt = name + " = "
	ti.Width = 40
	ti.Focus()
	m.input = ti
	m.state = stateEdit
	m.message = ""
}

func (m *interactiveModel) View() string {
	if m.sess == nil {
		if m.err != nil {
			return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
		}
		return "Creating bridge..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Bridge Inspector"))
	b.WriteString(" ")
	b.WriteString(m.sess.ID())
	b.WriteString(" ")
	b.WriteString(typeStyle.Render(m.sess.Backend()))
	b.WriteString("\n\n")

	status := m.sess.Status()
	fmt.Fprintf(&b, "Status: %s\n\n", m.renderStatus(status))

	for i, name := range m.sess.Names() {
		line := m.formatBinding(name)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateEdit {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter store • esc cancel"))
		return b.String()
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	case m.busy:
		b.WriteString("Evaluating...\n\n")
	case m.message != "":
		b.WriteString(resultStyle.Render(m.message))
		b.WriteString("\n\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ select • enter edit • e evaluate • q quit"))
	return b.String()
}

func (m *interactiveModel) renderStatus(s graph.Status) string {
	switch s {
	case graph.StatusEvaluated:
		return resultStyle.Render(s.String())
	case graph.StatusErrored:
		return errorStyle.Render(s.String())
	default:
		return s.String()
	}
}

// formatBinding shows the value seen through the accessor next to the one
// the facade exports.
func (m *interactiveModel) formatBinding(name string) string {
	reflected, err := m.sess.Reflect().Get(name)
	if err != nil {
		return nameStyle.Render(name) + " " + errorStyle.Render(err.Error())
	}
	exported, err := m.sess.Export(name)
	if err != nil {
		return nameStyle.Render(name) + " " + errorStyle.Render(err.Error())
	}
	return fmt.Sprintf("%s: %s  reflect=%s  facade=%s",
		nameStyle.Render(name),
		typeStyle.Render(m.sess.TypeOf(name)),
		m.sess.Format(name, reflected),
		m.sess.Format(name, exported))
}

func runInteractive(m *manifest.Manifest, cfg config, logger *zap.Logger) error {
	p := tea.NewProgram(newInteractiveModel(m, cfg, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
