// Package cli is the terminal front end. It is a pure consumer of the
// model package: all vault and OTP work happens behind the model's surface.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"otpvault/config"
	"otpvault/model"
)

type uiModel struct {
	core *model.Model
	proj *model.Projection
	cfg  config.Config

	state     string // "unlock", "list", "add", "detail"
	cursor    int
	passInput textinput.Model
	addInputs []textinput.Model
	focus     int
	pending   bool
	msg       string
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
	msgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("57")).Foreground(lipgloss.Color("0"))
	codeStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
)

type tickMsg time.Time

type unlockResultMsg struct{ err error }

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Run starts the interactive TUI over an already constructed model.
func Run(core *model.Model, cfg config.Config) error {
	pass := textinput.New()
	pass.Placeholder = "master password"
	pass.EchoMode = textinput.EchoPassword
	pass.Focus()

	m := uiModel{
		core:      core,
		proj:      model.NewProjection(core),
		cfg:       cfg,
		state:     "unlock",
		passInput: pass,
	}

	_, err := tea.NewProgram(m).Run()
	return err
}

func (m uiModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.state {
	case "unlock":
		return m.updateUnlock(msg)
	case "list":
		return m.updateList(msg)
	case "add":
		return m.updateAdd(msg)
	case "detail":
		return m.updateDetail(msg)
	default:
		return m, nil
	}
}

func (m uiModel) View() string {
	switch m.state {
	case "unlock":
		return m.viewUnlock()
	case "list":
		return m.viewList()
	case "add":
		return m.viewAdd()
	case "detail":
		return m.viewDetail()
	default:
		return ""
	}
}

// --- unlock ---

func (m uiModel) updateUnlock(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if m.pending {
				return m, nil
			}
			password := m.passInput.Value()
			m.passInput.SetValue("")
			m.pending = true
			m.msg = "unlocking..."
			result := m.core.Unlock(password)
			return m, func() tea.Msg { return unlockResultMsg{err: <-result} }
		case "esc":
			return m, tea.Quit
		}
	case unlockResultMsg:
		m.pending = false
		if msg.err != nil {
			m.msg = "could not unlock the vault; check your password"
			return m, nil
		}
		m.state = "list"
		m.msg = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.passInput, cmd = m.passInput.Update(msg)
	return m, cmd
}

func (m uiModel) viewUnlock() string {
	var b strings.Builder
	if m.core.FirstTime() {
		b.WriteString(titleStyle.Render("Create your vault"))
		b.WriteString("\n\nChoose a master password. It encrypts every secret you add.\n\n")
	} else {
		b.WriteString(titleStyle.Render("Unlock your vault"))
		b.WriteString("\n\n")
	}
	b.WriteString(m.passInput.View())
	b.WriteString("\n\n")
	if m.msg != "" {
		if m.core.FailedToLoad() {
			b.WriteString(errStyle.Render(m.msg))
		} else {
			b.WriteString(msgStyle.Render(m.msg))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n(enter to continue, esc to quit)\n")
	return b.String()
}

// --- list ---

func (m uiModel) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "j", "down":
			if m.cursor < m.core.Len()-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "enter":
			if m.core.Len() > 0 {
				m.core.Select(m.cursor)
				m.state = "detail"
				m.msg = ""
				return m, tick()
			}
		case "a":
			m.enterAddForm()
			return m, textinput.Blink
		case "d":
			if m.core.Remove(m.cursor) {
				if m.cursor >= m.core.Len() && m.cursor > 0 {
					m.cursor--
				}
				m.msg = "entry deleted"
			}
		}
	}
	return m, nil
}

func (m uiModel) viewList() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Authenticator"))
	b.WriteString("\n\n")

	if m.core.Len() == 0 {
		b.WriteString("No entries yet. Press 'a' to add one.\n")
	}
	for i := 0; i < m.core.Len(); i++ {
		row := m.core.DisplayString(i)
		if i == m.cursor {
			row = selectedStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		b.WriteString(row)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.msg != "" {
		b.WriteString(msgStyle.Render(m.msg))
		b.WriteString("\n")
	}
	b.WriteString("\nj/k: move  enter: show code  a: add  d: delete  q: quit\n")
	return b.String()
}

// --- add ---

func (m *uiModel) enterAddForm() {
	labels := []string{"issuer", "account name", "secret (base32)"}
	m.addInputs = make([]textinput.Model, len(labels))
	for i, label := range labels {
		in := textinput.New()
		in.Placeholder = label
		m.addInputs[i] = in
	}
	m.addInputs[0].Focus()
	m.focus = 0
	m.state = "add"
	m.msg = ""
}

func (m uiModel) updateAdd(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.state = "list"
			return m, nil
		case "tab", "shift+tab", "up", "down":
			if msg.String() == "shift+tab" || msg.String() == "up" {
				m.focus--
			} else {
				m.focus++
			}
			if m.focus < 0 {
				m.focus = len(m.addInputs) - 1
			}
			if m.focus >= len(m.addInputs) {
				m.focus = 0
			}
			for i := range m.addInputs {
				if i == m.focus {
					m.addInputs[i].Focus()
				} else {
					m.addInputs[i].Blur()
				}
			}
			return m, textinput.Blink
		case "enter":
			if m.focus < len(m.addInputs)-1 {
				m.addInputs[m.focus].Blur()
				m.focus++
				m.addInputs[m.focus].Focus()
				return m, textinput.Blink
			}
			idx := m.core.Add(
				strings.TrimSpace(m.addInputs[0].Value()),
				strings.TrimSpace(m.addInputs[1].Value()),
				strings.TrimSpace(m.addInputs[2].Value()),
			)
			if idx == -1 {
				m.msg = "that secret is not valid Base32"
				return m, nil
			}
			m.cursor = idx
			m.state = "list"
			m.msg = "entry added"
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.addInputs[m.focus], cmd = m.addInputs[m.focus].Update(msg)
	return m, cmd
}

func (m uiModel) viewAdd() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Add entry"))
	b.WriteString("\n\n")
	for i := range m.addInputs {
		b.WriteString(m.addInputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if m.msg != "" {
		b.WriteString(errStyle.Render(m.msg))
		b.WriteString("\n")
	}
	b.WriteString("\ntab: next field  enter: save  esc: cancel\n")
	return b.String()
}

// --- detail ---

func (m uiModel) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// The projection recomputes from the clock on render; the tick
		// only forces a redraw once a second.
		return m, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc":
			m.core.Select(-1)
			m.state = "list"
			m.msg = ""
			return m, nil
		case "c":
			if err := m.proj.Copy(); err != nil {
				m.msg = "clipboard unavailable"
				return m, nil
			}
			clear := m.cfg.Clipboard.ClearSeconds
			m.msg = fmt.Sprintf("code copied, clears in %ds", clear)
			if clear > 0 {
				go func() {
					time.Sleep(time.Duration(clear) * time.Second)
					clipboard.WriteAll("")
				}()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m uiModel) viewDetail() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.proj.Name()))
	b.WriteString("\n\n")
	b.WriteString(codeStyle.Render(m.proj.CurrentCode()))
	b.WriteString(fmt.Sprintf("\n\n%s\n", countdownBar(m.proj.TimeLeft(), m.proj.TimeInterval())))
	if m.msg != "" {
		b.WriteString("\n")
		b.WriteString(msgStyle.Render(m.msg))
		b.WriteString("\n")
	}
	b.WriteString("\nc: copy  esc: back\n")
	return b.String()
}

func countdownBar(left, interval int) string {
	if interval <= 0 {
		return ""
	}
	const width = 30
	filled := left * width / interval
	return fmt.Sprintf("[%s%s] %2ds", strings.Repeat("=", filled), strings.Repeat(" ", width-filled), left)
}
