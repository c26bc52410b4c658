package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxEventRows caps the rows kept in the live view.
const maxEventRows = 200

// EventMsg is sent when a pending token operation's deploy is processed.
type EventMsg struct {
	Kind       string
	DeployHash string
	Success    bool
	Error      string
	At         time.Time
}

// StreamStatusMsg updates the status bar of the live view.
type StreamStatusMsg struct {
	Connected bool
	Pending   int
	ErrMsg    string
}

// EventsModel is the Bubble Tea model behind `watch`.
type EventsModel struct {
	Contract string
	Kinds    []string
	Rows     []EventMsg
	Status   StreamStatusMsg
	Frame    int
	Quitting bool

	cursor int
	flash  string
	copy   func(string) error
}

// NewEventsModel returns a model listening on contract for kinds.
func NewEventsModel(contract string, kinds []string) EventsModel {
	return EventsModel{Contract: contract, Kinds: kinds, copy: copyToClipboard}
}

type eventsTickMsg struct{}

func eventsSpinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg {
		return eventsTickMsg{}
	})
}

func (m EventsModel) Init() tea.Cmd { return eventsSpinTick() }

func (m EventsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.flash = ""
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.Rows)-1 {
				m.cursor++
			}
		case "c":
			if m.cursor >= len(m.Rows) || m.copy == nil {
				break
			}
			hash := m.Rows[m.cursor].DeployHash
			if err := m.copy(hash); err != nil {
				m.flash = "Copy failed"
			} else {
				m.flash = "Copied: " + TruncateHash(hash)
			}
		}

	case eventsTickMsg:
		m.Frame = (m.Frame + 1) % len(spinnerFrames)
		return m, eventsSpinTick()

	case EventMsg:
		// Latest on top.
		m.Rows = append([]EventMsg{msg}, m.Rows...)
		if len(m.Rows) > maxEventRows {
			m.Rows = m.Rows[:maxEventRows]
		}
		if m.Status.Pending > 0 {
			m.Status.Pending--
		}

	case StreamStatusMsg:
		m.Status = msg
	}

	return m, nil
}

func (m EventsModel) View() string {
	if m.Quitting {
		return ""
	}

	var sb strings.Builder
	spin := spinnerFrames[m.Frame]

	title := fmt.Sprintf("Token events  ·  %s  ·  %s", TruncateHash(m.Contract), strings.Join(m.Kinds, ", "))
	sb.WriteString(StyleTitle.Render(title) + "\n")

	switch {
	case m.Status.ErrMsg != "":
		sb.WriteString(StyleError.Render("✗ "+m.Status.ErrMsg) + "\n\n")
	case m.Status.Connected:
		sb.WriteString(StyleInfo.Render(fmt.Sprintf("%s listening · %d pending", spin, m.Status.Pending)) + "\n\n")
	default:
		sb.WriteString(StyleMeta.Render("  connecting…") + "\n\n")
	}

	const (
		wTime = 8
		wKind = 20
		wHash = 16
	)
	sep := StyleMeta.Render(strings.Repeat("─", wTime+wKind+wHash+16))
	sb.WriteString(
		padR(StyleDim.Render("TIME"), wTime) + "  " +
			padR(StyleDim.Render("KIND"), wKind) + "  " +
			padR(StyleDim.Render("DEPLOY"), wHash) + "  " +
			StyleDim.Render("RESULT") + "\n",
	)
	sb.WriteString(sep + "\n")

	if len(m.Rows) == 0 {
		sb.WriteString(StyleMeta.Render("  Waiting for deploys…") + "\n")
	} else {
		for i, row := range m.Rows {
			result := StyleSuccess.Render("ok")
			if !row.Success {
				result = StyleError.Render("failed: " + row.Error)
			}
			line := padR(StyleMeta.Render(row.At.Format("15:04:05")), wTime) + "  " +
				padR(StyleValue.Render(row.Kind), wKind) + "  " +
				padR(StyleAddress.Render(TruncateHash(row.DeployHash)), wHash) + "  " +
				result
			if i == m.cursor {
				line = StyleSelected.Render(line)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString(sep + "\n")
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("  %d event(s)", len(m.Rows))) + "\n")
	}

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(StyleMeta.Render("[ ↑↓ ] navigate   ") +
			StyleWarning.Render("[ c ]") + StyleMeta.Render(" copy deploy hash   [ q ] quit"))
	}
	sb.WriteString("\n")
	return sb.String()
}

// PlainEventLine formats an event for non-interactive output.
func PlainEventLine(e EventMsg) string {
	if e.Success {
		return fmt.Sprintf("%s %s %s ok", e.At.Format(time.RFC3339), e.Kind, e.DeployHash)
	}
	return fmt.Sprintf("%s %s %s failed: %s", e.At.Format(time.RFC3339), e.Kind, e.DeployHash, e.Error)
}

// padR pads s with spaces to a display width of n.
func padR(s string, n int) string {
	w := lipgloss.Width(s)
	if w >= n {
		return s
	}
	return s + strings.Repeat(" ", n-w)
}

// copyToClipboard writes text to the system clipboard.
func copyToClipboard(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "windows":
		cmd = exec.Command("clip")
	default:
		if _, err := exec.LookPath("wl-copy"); err == nil {
			cmd = exec.Command("wl-copy")
		} else {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	_, _ = io.WriteString(stdin, text)
	stdin.Close()
	return cmd.Wait()
}
