package main

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"casefile/internal/handlers"
	"casefile/pkg/investigation"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "Describe what you investigate, or /accuse <suspect>..."
)

// transcriptEntry is one line of the session transcript.
type transcriptEntry struct {
	speaker string // "you", "narrator", "system"
	content string
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	caseView     *handlers.CaseView
	state        *investigation.Investigation
	transcript   []transcriptEntry
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool

	// Case selection state
	showCaseModal bool
	cases         []handlers.CaseSummary
	selectedCase  int
	loadingCases  bool

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int
}

type casesLoadedMsg struct {
	cases []handlers.CaseSummary
	err   error
}

type caseStartedMsg struct {
	caseView  *handlers.CaseView
	state     *investigation.Investigation
	narration string
	resumed   bool
	err       error
}

type narrationMsg struct {
	narration  string
	state      *investigation.Investigation
	discovered []string
	canAccuse  bool
	correct    *bool
	err        error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 1000
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		client:        client,
		textarea:      ta,
		chatViewport:  chatVp,
		metaViewport:  metaVp,
		ready:         false,
		showCaseModal: true,
		loadingCases:  true,
		selectedCase:  0,
	}
}

func (m *ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("CASE FILE") + "\n\n")

	if m.caseView != nil {
		content.WriteString("Case:\n")
		content.WriteString(m.caseView.Title + "\n\n")
	}

	content.WriteString("Detective:\n")
	content.WriteString(m.config.PlayerID + "\n\n")

	if m.state != nil {
		content.WriteString("Status:\n")
		content.WriteString(string(m.state.Status) + "\n\n")

		if m.caseView != nil {
			content.WriteString("Clues found:\n")
			content.WriteString(fmt.Sprintf("%d of %d\n\n", len(m.state.Discovered), m.caseView.ClueCount))

			content.WriteString("Accusations:\n")
			content.WriteString(fmt.Sprintf("%d of %d used\n\n", m.state.AttemptedSolutions, m.caseView.MaxAttempts))
		}
	}

	if m.caseView != nil && len(m.caseView.Suspects) > 0 {
		content.WriteString("Suspects:\n")
		for _, s := range m.caseView.Suspects {
			content.WriteString(fmt.Sprintf("• %s (%s)\n", s.Name, s.ID))
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• /accuse <id>\n")
	content.WriteString("• /suspects\n")
	content.WriteString("• /help\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

// writeChatContent rebuilds the chat transcript for the current width
func (m *ConsoleUI) writeChatContent() {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("CASEFILE") + "\n\n")
	content.WriteString("Describe what you investigate. The narrator responds to your leads.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(chatWidth-6, 10))) + "\n\n")

	for _, entry := range m.transcript {
		switch entry.speaker {
		case "you":
			content.WriteString(userStyle.Render("You: ") + wordwrap.String(entry.content, chatWidth-6) + "\n\n")
		case "narrator":
			wrapped := wordwrap.String(entry.content, chatWidth-len(AgentName)-2)
			content.WriteString(narratorStyle.Render(AgentName+": ") + wrapped + "\n\n")
		case "system":
			content.WriteString(systemStyle.Render(wordwrap.String(entry.content, chatWidth)) + "\n\n")
		}
	}

	if m.loading {
		content.WriteString(m.renderProgressBar())
	}

	m.chatViewport.SetContent(content.String())
	m.chatViewport.GotoBottom()
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.showCaseModal {
		return m.loadCases()
	}
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle case modal first
	if m.showCaseModal {
		return m.updateCaseModal(msg)
	}

	// Handle quit modal second
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanels()
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())
		m.ready = true

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, "/") {
				return m.handleCommand(input)
			}

			m.textarea.Reset()
			m.loading = true
			m.progressTick = 0

			m.transcript = append(m.transcript, transcriptEntry{speaker: "you", content: input})
			m.writeChatContent()

			return m, tea.Batch(m.sendUtteranceCmd(input), progressTick())
		}

	case narrationMsg:
		m.loading = false
		if msg.err != nil {
			m.transcript = append(m.transcript, transcriptEntry{
				speaker: "system",
				content: errorStyle.Render("Error: " + msg.err.Error()),
			})
		} else {
			if msg.state != nil {
				m.state = msg.state
			}
			if len(msg.discovered) > 0 {
				m.transcript = append(m.transcript, transcriptEntry{
					speaker: "system",
					content: fmt.Sprintf("Clue recorded: %s", strings.Join(msg.discovered, ", ")),
				})
			}
			if msg.narration != "" {
				m.transcript = append(m.transcript, transcriptEntry{speaker: "narrator", content: msg.narration})
			}
			if msg.canAccuse {
				m.transcript = append(m.transcript, transcriptEntry{
					speaker: "system",
					content: "You have enough evidence to accuse. Use /accuse <suspect>.",
				})
			}
			if msg.correct != nil {
				if *msg.correct {
					m.transcript = append(m.transcript, transcriptEntry{speaker: "system", content: "Case closed."})
				} else if m.state != nil && m.state.Status == investigation.StatusFailed {
					m.transcript = append(m.transcript, transcriptEntry{speaker: "system", content: "The case has gone cold."})
				}
			}
		}
		m.writeChatContent()
		m.metaViewport.SetContent(m.writeMetadata())
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.writeChatContent()
			return m, progressTick()
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m *ConsoleUI) resizePanels() {
	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	m.chatViewport.Width = chatWidth - 2
	m.chatViewport.Height = m.height - 7
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(input)
	cmd := strings.ToLower(fields[0])
	m.textarea.Reset()

	switch cmd {
	case "/help":
		m.transcript = append(m.transcript, transcriptEntry{
			speaker: "system",
			content: "Commands: /accuse <suspect-id> to make an accusation, /suspects to list suspects, /clues to review evidence, /status to refresh your case status, Ctrl+C to quit. Anything else is treated as an investigative statement.",
		})
		m.writeChatContent()

	case "/suspects":
		var sb strings.Builder
		sb.WriteString("Suspects:\n")
		if m.caseView != nil {
			for _, s := range m.caseView.Suspects {
				sb.WriteString(fmt.Sprintf("• %s (%s)", s.Name, s.ID))
				if s.Alibi != "" {
					sb.WriteString(" - " + s.Alibi)
				}
				sb.WriteString("\n")
			}
		}
		m.transcript = append(m.transcript, transcriptEntry{speaker: "system", content: sb.String()})
		m.writeChatContent()

	case "/clues":
		var sb strings.Builder
		if m.state == nil || len(m.state.Discovered) == 0 {
			sb.WriteString("No clues recorded yet.")
		} else {
			sb.WriteString("Evidence so far:\n")
			for _, id := range m.state.Discovered {
				sb.WriteString("• " + id + "\n")
			}
		}
		m.transcript = append(m.transcript, transcriptEntry{speaker: "system", content: sb.String()})
		m.writeChatContent()

	case "/status":
		inv, err := getInvestigation(m.client, m.config.APIBaseURL, m.config.PlayerID, m.caseView.ID)
		if err != nil {
			m.transcript = append(m.transcript, transcriptEntry{
				speaker: "system",
				content: errorStyle.Render("Error: " + err.Error()),
			})
		} else {
			m.state = inv
			m.transcript = append(m.transcript, transcriptEntry{
				speaker: "system",
				content: fmt.Sprintf("Status: %s. Clues: %d. Accusations used: %d.",
					inv.Status, len(inv.Discovered), inv.AttemptedSolutions),
			})
			m.metaViewport.SetContent(m.writeMetadata())
		}
		m.writeChatContent()

	case "/accuse":
		if len(fields) < 2 {
			m.transcript = append(m.transcript, transcriptEntry{
				speaker: "system",
				content: "Usage: /accuse <suspect-id>. Try /suspects to see who is in the frame.",
			})
			m.writeChatContent()
			return m, nil
		}
		suspectID := fields[1]
		m.loading = true
		m.progressTick = 0
		m.transcript = append(m.transcript, transcriptEntry{
			speaker: "you",
			content: fmt.Sprintf("I accuse %s.", suspectID),
		})
		m.writeChatContent()
		return m, tea.Batch(m.accuseCmd(suspectID), progressTick())

	default:
		m.transcript = append(m.transcript, transcriptEntry{
			speaker: "system",
			content: "Unknown command. Try /help.",
		})
		m.writeChatContent()
	}

	return m, nil
}

func (m ConsoleUI) sendUtteranceCmd(utterance string) tea.Cmd {
	return func() tea.Msg {
		result, err := sendUtterance(m.client, m.config.APIBaseURL, m.config.PlayerID, m.caseView.ID, utterance)
		if err != nil {
			return narrationMsg{err: err}
		}
		return narrationMsg{
			narration:  result.Narration,
			state:      result.State,
			discovered: result.Discovered,
			canAccuse:  result.CanAccuse && len(result.Discovered) > 0,
		}
	}
}

func (m ConsoleUI) accuseCmd(suspectID string) tea.Cmd {
	return func() tea.Msg {
		result, err := accuseSuspect(m.client, m.config.APIBaseURL, m.config.PlayerID, m.caseView.ID, suspectID)
		if err != nil {
			return narrationMsg{err: err}
		}
		correct := result.Correct
		return narrationMsg{
			narration: result.Narration,
			state:     result.State,
			correct:   &correct,
		}
	}
}

func (m ConsoleUI) loadCases() tea.Cmd {
	return func() tea.Msg {
		cases, err := listCases(m.client, m.config.APIBaseURL)
		return casesLoadedMsg{cases, err}
	}
}

func (m ConsoleUI) startCaseCmd(caseID string) tea.Cmd {
	return func() tea.Msg {
		result, err := startCase(m.client, m.config.APIBaseURL, m.config.PlayerID, caseID)
		if err != nil {
			return caseStartedMsg{err: err}
		}
		view, err := getCase(m.client, m.config.APIBaseURL, caseID)
		if err != nil {
			return caseStartedMsg{err: err}
		}
		return caseStartedMsg{
			caseView:  view,
			state:     result.State,
			narration: result.Narration,
			resumed:   result.Resumed,
		}
	}
}

func (m ConsoleUI) updateCaseModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case casesLoadedMsg:
		m.loadingCases = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.cases = msg.cases
		}

	case caseStartedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.caseView = msg.caseView
			m.state = msg.state
			m.showCaseModal = false
			if msg.resumed {
				m.transcript = append(m.transcript, transcriptEntry{
					speaker: "system",
					content: "Resuming your open investigation.",
				})
			}
			if msg.narration != "" {
				m.transcript = append(m.transcript, transcriptEntry{speaker: "narrator", content: msg.narration})
			}
			if m.width > 0 && m.height > 0 {
				m.resizePanels()
			}
			m.writeChatContent()
			m.metaViewport.SetContent(m.writeMetadata())
			m.textarea.Focus()
			m.ready = true
		}
		return m, textarea.Blink

	case tea.KeyMsg:
		if m.loadingCases {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		if m.err != nil {
			if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
				return m, tea.Quit
			}
			return m, nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyUp:
			if m.selectedCase > 0 {
				m.selectedCase--
			}
		case tea.KeyDown:
			if m.selectedCase < len(m.cases)-1 {
				m.selectedCase++
			}
		case tea.KeyEnter:
			if len(m.cases) > 0 {
				m.loading = true
				return m, m.startCaseCmd(m.cases[m.selectedCase].ID)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				if !m.showCaseModal {
					m.textarea.Focus()
					return m, textarea.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Leave the Case?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved; you can pick the trail back up later.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to keep investigating"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderCaseModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	if m.loadingCases {
		content.WriteString(modalTitleStyle.Render("Loading Cases..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Fetching the case catalog..."))
	} else if m.err != nil {
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load cases: %v", m.err)))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	} else if m.loading {
		content.WriteString(modalTitleStyle.Render("Opening Case File..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Dusting off the folder..."))
	} else {
		content.WriteString(modalTitleStyle.Render("Select a Case"))
		content.WriteString("\n\n")

		for i, c := range m.cases {
			label := c.Title
			if c.Difficulty > 0 {
				label = fmt.Sprintf("%s (%s)", c.Title, strings.Repeat("*", c.Difficulty))
			}
			if i == m.selectedCase {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", label)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", label)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showCaseModal {
		return m.renderCaseModal()
	}

	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 10))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓")
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
