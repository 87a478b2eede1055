package chatcmder

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/phoebemtg/lifestring-sub000/pkg/chat"
	"github.com/phoebemtg/lifestring-sub000/pkg/session"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	aiLabelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	helpStyle      = lipgloss.NewStyle().Faint(true)
)

// streamMsg carries the assistant's revealed text so far.
type streamMsg string

// doneMsg ends a turn.
type doneMsg struct {
	err error
}

type model struct {
	sess     *session.Session
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	// events carries stream/done messages from the submit goroutine.
	events chan tea.Msg

	busy  bool
	ready bool
	width int
}

func newModel(sess *session.Session) model {
	input := textinput.New()
	input.Placeholder = "Ask the assistant anything..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		sess:    sess,
		input:   input,
		spinner: sp,
		events:  make(chan tea.Msg, 64),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// listen waits for the next message from the submit goroutine.
func (m model) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		headerHeight := 1
		footerHeight := 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
			if r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(msg.Width-4),
			); err == nil {
				m.renderer = r
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight - footerHeight
		}
		m.input.Width = msg.Width - 4
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlN:
			m.sess.Reset()
			m.busy = false
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			m.busy = true
			m.submit(text)
			m.refresh()
			return m, tea.Batch(m.listen(), m.spinner.Tick)
		}

	case streamMsg:
		m.refresh()
		return m, m.listen()

	case doneMsg:
		m.busy = false
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inputCmd, viewportCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewportCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewportCmd)
}

// submit runs the turn off the UI goroutine. Revealed prefixes are dropped if
// the UI is behind; every prefix carries the full text so far, so the next
// one catches up.
func (m model) submit(text string) {
	events := m.events
	sess := m.sess
	go func() {
		_, err := sess.Submit(context.Background(), text, func(revealed string) {
			select {
			case events <- streamMsg(revealed):
			default:
			}
		})
		events <- doneMsg{err: err}
	}()
}

func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *model) renderTranscript() string {
	turns := m.sess.Transcript()
	if len(turns) == 0 {
		return helpStyle.Render("\n  Start a conversation, or press ctrl+n anytime for a fresh one.")
	}

	var b strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case chat.RoleUser:
			b.WriteString(userLabelStyle.Render("You"))
			b.WriteString("  ")
			b.WriteString(turn.Text)
			b.WriteString("\n\n")
		case chat.RoleAssistant:
			b.WriteString(aiLabelStyle.Render("AI"))
			b.WriteString("\n")
			b.WriteString(m.renderReply(turn.Text))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderReply renders finished replies as markdown. While a reply is still
// revealing it stays plain text; re-rendering half-open markdown every rune
// flickers badly.
func (m *model) renderReply(text string) string {
	if m.busy || m.renderer == nil {
		return text
	}
	rendered, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return rendered
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := titleStyle.Render("lifestring assistant")

	status := helpStyle.Render("enter send · ctrl+n new chat · esc quit")
	if m.busy {
		status = m.spinner.View() + " thinking..."
	}

	return header + "\n" + m.viewport.View() + "\n" + m.input.View() + "\n" + status
}
