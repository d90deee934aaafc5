package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"greenwave-tui/internal/api"
	"greenwave-tui/internal/engine"
	"greenwave-tui/internal/feed"
	"greenwave-tui/internal/storage"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	chromeBG        = lipgloss.Color("#05090C")
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
	waveformLow     = lipgloss.Color("#2B4C5B")
	waveformBandBG  = lipgloss.Color("#13232C")
	rlWavePalette   = []lipgloss.Color{
		lipgloss.Color("#2B7EA1"),
		lipgloss.Color("#20B6D9"),
		lipgloss.Color("#44E7AE"),
		lipgloss.Color("#D8F26F"),
		lipgloss.Color("#F6AE2D"),
		lipgloss.Color("#FF6B6B"),
	}
	fixedWavePalette = []lipgloss.Color{
		lipgloss.Color("#1E7E9A"),
		lipgloss.Color("#2DBBD3"),
		lipgloss.Color("#6AE18A"),
		lipgloss.Color("#C8EE63"),
		lipgloss.Color("#F0C74B"),
		lipgloss.Color("#FF8E53"),
	}
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	linkUpStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	linkDownStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	scenarioSelectedStyle = lipgloss.NewStyle().
				Foreground(accentPrimary).
				Bold(true)
)

type scenariosLoadedMsg struct {
	items []api.Scenario
	err   error
}

type storeUpdatedMsg struct {
	ok bool
}

type commandDoneMsg struct {
	kind engine.CommandKind
	cfg  api.InitConfig
	err  error
}

type metricsPrimedMsg struct {
	err error
}

type reportSavedMsg struct {
	summary storage.SessionSummary
	err     error
}

type uiTickMsg struct {
	at time.Time
}

type focusPane int

const (
	paneScenarios focusPane = iota
	paneMonitor
	paneDecisions
	paneAnalytics
)

const (
	commandTimeout      = 8 * time.Second
	launchTimeout       = 20 * time.Second
	bootstrapTimeout    = 8 * time.Second
	uiTickInterval      = time.Second
	defaultVehicleCount = 1000
	minMonitorBodyLines = 8
)

type Model struct {
	client   *api.Client
	eng      *engine.Engine
	sessions *storage.Store
	updates  <-chan struct{}

	ready  bool
	width  int
	height int

	scenarioView  viewport.Model
	decisionView  viewport.Model
	analyticsView viewport.Model
	carsInput     textinput.Model
	spinner       spinner.Model

	focusPane focusPane
	showHelp  bool

	statusText       string
	errorText        string
	showLaunchPrompt bool
	lastLaunch       api.InitConfig

	state      engine.SimulationState
	history    []engine.HistorySample
	decisions  []api.DecisionEntry
	comparison *api.Comparison
	link       feed.Status
	drops      int
	engineLogs []string

	scenarios      []api.Scenario
	scenarioCursor int

	lastUpdateAt time.Time

	scenarioW  int
	scenarioH  int
	monitorW   int
	monitorH   int
	decisionsW int
	decisionsH int
	analyticsW int
	analyticsH int
}

func NewModel(client *api.Client, eng *engine.Engine, sessions *storage.Store) Model {
	scenarioView := viewport.New(40, 14)
	scenarioView.SetContent("Loading scenario library...")

	decisionView := viewport.New(50, 12)
	decisionView.SetContent("No controller decisions yet.")

	analyticsView := viewport.New(44, 12)
	analyticsView.SetContent("No comparison data yet.")

	carsInput := textinput.New()
	carsInput.Prompt = "> "
	carsInput.Placeholder = strconv.Itoa(defaultVehicleCount)
	carsInput.CharLimit = 6
	carsInput.Width = 12

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	return Model{
		client:        client,
		eng:           eng,
		sessions:      sessions,
		updates:       eng.Store().Subscribe(),
		scenarioView:  scenarioView,
		decisionView:  decisionView,
		analyticsView: analyticsView,
		carsInput:     carsInput,
		spinner:       spin,
		focusPane:     paneScenarios,
		showHelp:      true,
		statusText:    "Connected. Loading scenario library...",
		scenarioW:     44,
		scenarioH:     16,
		monitorW:      54,
		monitorH:      16,
		decisionsW:    54,
		decisionsH:    12,
		analyticsW:    44,
		analyticsH:    12,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadScenariosCmd(m.client),
		primeMetricsCmd(m.eng),
		waitForUpdateCmd(m.updates),
		uiTickCmd(),
	)
}

func loadScenariosCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
		defer cancel()
		items, err := client.Scenarios(ctx)
		return scenariosLoadedMsg{items: items, err: err}
	}
}

func primeMetricsCmd(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
		defer cancel()
		return metricsPrimedMsg{err: eng.PrimeMetrics(ctx)}
	}
}

func waitForUpdateCmd(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-updates
		return storeUpdatedMsg{ok: ok}
	}
}

func uiTickCmd() tea.Cmd {
	return tea.Tick(uiTickInterval, func(at time.Time) tea.Msg {
		return uiTickMsg{at: at}
	})
}

func launchCmd(eng *engine.Engine, cfg api.InitConfig) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), launchTimeout)
		defer cancel()
		err := eng.Launch(ctx, cfg)
		return commandDoneMsg{kind: engine.CommandInitialize, cfg: cfg, err: err}
	}
}

func startCmd(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{kind: engine.CommandStart, err: eng.Start(ctx)}
	}
}

func stopCmd(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{kind: engine.CommandStop, err: eng.Stop(ctx)}
	}
}

func resetCmd(eng *engine.Engine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return commandDoneMsg{kind: engine.CommandReset, err: eng.Reset(ctx)}
	}
}

func saveReportCmd(store *storage.Store, report storage.SessionReport) tea.Cmd {
	return func() tea.Msg {
		summary, err := store.SaveReport(report)
		return reportSavedMsg{summary: summary, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanels()
		m.applyFocusState()
		m.refreshScenarioView()
		m.refreshDecisionView()
		m.refreshAnalyticsView()
		return m, nil

	case spinner.TickMsg:
		if !m.state.Running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case uiTickMsg:
		return m, uiTickCmd()

	case storeUpdatedMsg:
		if !msg.ok {
			return m, nil
		}
		wasRunning := m.state.Running
		store := m.eng.Store()
		m.state = store.State()
		m.history = store.History()
		m.decisions = store.Decisions()
		m.comparison = store.Comparison()
		m.link = store.Link()
		m.drops = store.DroppedFrames()
		m.engineLogs = m.eng.Logs()
		m.lastUpdateAt = time.Now()
		m.refreshDecisionView()
		m.refreshAnalyticsView()

		cmds := []tea.Cmd{waitForUpdateCmd(m.updates)}
		if !wasRunning && m.state.Running {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case scenariosLoadedMsg:
		if msg.err != nil {
			m.errorText = "Failed to load scenario library: " + msg.err.Error()
			m.statusText = "Scenario library unavailable."
			return m, nil
		}
		m.scenarios = append([]api.Scenario(nil), msg.items...)
		if m.scenarioCursor >= len(m.scenarios) {
			m.scenarioCursor = maxInt(0, len(m.scenarios)-1)
		}
		m.refreshScenarioView()
		m.statusText = fmt.Sprintf("Scenario library loaded (%d scenarios). Press enter to launch.", len(m.scenarios))
		return m, nil

	case metricsPrimedMsg:
		if msg.err != nil {
			// Normal before the first launch; the stream will fill it in.
			return m, nil
		}
		m.statusText = "Live metrics primed."
		return m, nil

	case commandDoneMsg:
		if msg.err != nil {
			if errors.Is(msg.err, engine.ErrCommandPending) {
				m.statusText = "Command already in flight; hold on."
				return m, nil
			}
			m.errorText = commandErrorText(msg.kind, msg.err)
			return m, nil
		}
		m.errorText = ""
		switch msg.kind {
		case engine.CommandInitialize:
			m.lastLaunch = msg.cfg
			m.statusText = fmt.Sprintf("Simulation launched: %s (%d vehicles)", msg.cfg.Scenario, msg.cfg.NCars)
			return m, m.spinner.Tick
		case engine.CommandStart:
			m.statusText = "Simulation resumed."
			return m, m.spinner.Tick
		case engine.CommandStop:
			m.statusText = "Simulation stopped."
		case engine.CommandReset:
			m.statusText = "Simulation reset."
		}
		return m, nil

	case reportSavedMsg:
		if msg.err != nil {
			m.errorText = "Could not save session report: " + msg.err.Error()
			return m, nil
		}
		m.statusText = "Saved session report: " + filepathBase(msg.summary.Directory)
		return m, nil

	case tea.KeyMsg:
		if m.showLaunchPrompt {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.showLaunchPrompt = false
				m.carsInput.Blur()
				m.statusText = "Launch cancelled."
				return m, tea.ClearScreen
			case "enter":
				raw := strings.TrimSpace(m.carsInput.Value())
				cars := defaultVehicleCount
				if raw != "" {
					parsed, err := strconv.Atoi(raw)
					if err != nil || parsed <= 0 {
						m.errorText = "Vehicle count must be a positive integer."
						return m, nil
					}
					cars = parsed
				}
				m.showLaunchPrompt = false
				m.carsInput.Blur()
				sel := m.scenarios[clampInt(m.scenarioCursor, 0, len(m.scenarios)-1)]
				cfg := api.DefaultInitConfig(sel.ID)
				cfg.NCars = cars
				m.errorText = ""
				m.statusText = "Launching " + sel.Name + "..."
				return m, tea.Batch(tea.ClearScreen, launchCmd(m.eng, cfg))
			}
			var cmd tea.Cmd
			m.carsInput, cmd = m.carsInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.focusPane = nextFocusPane(m.focusPane)
			m.statusText = "Focus: " + focusPaneLabel(m.focusPane)
			return m, nil
		case "shift+tab", "backtab":
			m.focusPane = prevFocusPane(m.focusPane)
			m.statusText = "Focus: " + focusPaneLabel(m.focusPane)
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			m.resizePanels()
			return m, nil
		case "enter":
			if m.focusPane == paneScenarios {
				if len(m.scenarios) == 0 {
					m.errorText = "No scenarios loaded yet."
					return m, nil
				}
				sel := m.scenarios[clampInt(m.scenarioCursor, 0, len(m.scenarios)-1)]
				m.showLaunchPrompt = true
				m.carsInput.SetValue(strconv.Itoa(defaultVehicleCount))
				m.carsInput.CursorEnd()
				m.carsInput.Focus()
				m.errorText = ""
				m.statusText = "Launching " + sel.Name + ": set vehicle count, then press Enter."
				return m, nil
			}
		case "s":
			if m.state.Running {
				m.errorText = "Simulation is already running."
				return m, nil
			}
			m.statusText = "Resuming simulation..."
			return m, startCmd(m.eng)
		case "x":
			if !m.state.Running {
				m.errorText = "No running simulation to stop."
				return m, nil
			}
			m.statusText = "Stopping simulation..."
			return m, stopCmd(m.eng)
		case "r":
			m.statusText = "Resetting simulation..."
			return m, resetCmd(m.eng)
		case "e":
			if m.state.Step == 0 && len(m.history) == 0 {
				m.errorText = "Nothing to export yet."
				return m, nil
			}
			report := storage.SessionReport{
				Config:     m.lastLaunch,
				State:      m.state,
				History:    m.history,
				Decisions:  m.decisions,
				Comparison: m.comparison,
			}
			m.statusText = "Saving session report..."
			return m, saveReportCmd(m.sessions, report)
		case "up", "k":
			if m.focusPane == paneScenarios && len(m.scenarios) > 0 {
				m.scenarioCursor = clampInt(m.scenarioCursor-1, 0, len(m.scenarios)-1)
				m.refreshScenarioView()
				return m, nil
			}
		case "down", "j":
			if m.focusPane == paneScenarios && len(m.scenarios) > 0 {
				m.scenarioCursor = clampInt(m.scenarioCursor+1, 0, len(m.scenarios)-1)
				m.refreshScenarioView()
				return m, nil
			}
		}

		switch m.focusPane {
		case paneDecisions:
			var cmd tea.Cmd
			m.decisionView, cmd = m.decisionView.Update(msg)
			return m, cmd
		case paneAnalytics:
			var cmd tea.Cmd
			m.analyticsView, cmd = m.analyticsView.Update(msg)
			return m, cmd
		case paneScenarios:
			var cmd tea.Cmd
			m.scenarioView, cmd = m.scenarioView.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		switch m.focusPane {
		case paneScenarios:
			var cmd tea.Cmd
			m.scenarioView, cmd = m.scenarioView.Update(msg)
			return m, cmd
		case paneDecisions:
			var cmd tea.Cmd
			m.decisionView, cmd = m.decisionView.Update(msg)
			return m, cmd
		case paneAnalytics:
			var cmd tea.Cmd
			m.analyticsView, cmd = m.analyticsView.Update(msg)
			return m, cmd
		}
	}

	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Booting greenwave-tui..."
	}

	innerWidth := maxInt(40, m.width-2)
	innerHeight := maxInt(12, m.height-2)

	header := headerStyle.Render("Greenwave Control Room")

	statusPrefix := "*"
	if m.state.Running {
		statusPrefix = m.spinner.View()
	}
	statusBody := strings.TrimSpace(m.statusText)
	if statusBody == "" {
		statusBody = "Ready"
	}
	statusLine := statusStyle.Render(statusPrefix + " " + statusBody)
	if strings.TrimSpace(m.errorText) != "" {
		statusLine = errorStyle.Render(m.errorText)
	}

	scenarioPanel := renderPanel(
		"Scenario Library",
		m.scenarioView.View(),
		m.scenarioW,
		m.scenarioH,
		m.focusPane == paneScenarios,
	)
	monitorPanel := renderPanel(
		"Live Monitor",
		fitTextHeight(m.renderMonitor(), maxInt(1, m.monitorH-1)),
		m.monitorW,
		m.monitorH,
		m.focusPane == paneMonitor,
	)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, scenarioPanel, monitorPanel)

	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel(
			"Decision Log",
			m.decisionView.View(),
			m.decisionsW,
			m.decisionsH,
			m.focusPane == paneDecisions,
		),
		renderPanel(
			"Comparative Analytics",
			m.analyticsView.View(),
			m.analyticsW,
			m.analyticsH,
			m.focusPane == paneAnalytics,
		),
	)

	parts := []string{header, statusLine}
	if m.showLaunchPrompt {
		promptWidth := clampInt(innerWidth-4, 42, 80)
		promptBody := m.renderLaunchPrompt(maxInt(36, promptWidth-4))
		parts = append(parts, renderPanel("Launch Scenario", promptBody, promptWidth, 8, true))
	}
	parts = append(parts, topRow, bottomRow, m.renderFooter(innerWidth))
	if m.showHelp {
		parts = append(parts, helpStyle.Render("enter launch | s resume | x stop | r reset | e export report | tab/shift+tab cycle panes | up/down scroll | ? help | q quit"))
	}

	body := strings.Join(parts, "\n")
	body = fitTextHeight(body, innerHeight)
	return lipgloss.NewStyle().
		Background(chromeBG).
		Foreground(lipgloss.Color("#E8F0F2")).
		Width(innerWidth).
		Height(innerHeight).
		Padding(0, 1).
		Render(body)
}

func (m *Model) applyFocusState() {
	if m.showLaunchPrompt {
		m.carsInput.Focus()
		return
	}
	m.carsInput.Blur()
}

func nextFocusPane(current focusPane) focusPane {
	switch current {
	case paneScenarios:
		return paneMonitor
	case paneMonitor:
		return paneDecisions
	case paneDecisions:
		return paneAnalytics
	default:
		return paneScenarios
	}
}

func prevFocusPane(current focusPane) focusPane {
	switch current {
	case paneScenarios:
		return paneAnalytics
	case paneMonitor:
		return paneScenarios
	case paneDecisions:
		return paneMonitor
	default:
		return paneDecisions
	}
}

func focusPaneLabel(pane focusPane) string {
	switch pane {
	case paneScenarios:
		return "scenarios"
	case paneMonitor:
		return "monitor"
	case paneDecisions:
		return "decisions"
	case paneAnalytics:
		return "analytics"
	default:
		return "unknown"
	}
}

func commandErrorText(kind engine.CommandKind, err error) string {
	switch kind {
	case engine.CommandInitialize:
		return "Launch failed: " + err.Error()
	case engine.CommandStart:
		return "Resume failed: " + err.Error()
	case engine.CommandStop:
		return "Stop failed: " + err.Error()
	case engine.CommandReset:
		return "Reset failed: " + err.Error()
	default:
		return "Command failed: " + err.Error()
	}
}

func renderPanel(title, body string, width, height int, focused bool) string {
	borderColor := panelBorder
	if focused {
		borderColor = accentSecondary
	}
	style := panelStyle.Copy().
		BorderForeground(borderColor).
		Width(width).
		Height(height)

	titleLine := panelTitleStyle.Render(title)
	return style.Render(titleLine + "\n" + body)
}

func (m *Model) resizePanels() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	usableW := maxInt(40, m.width-6)
	innerH := maxInt(12, m.height-2)
	verticalOverhead := 6
	if m.showHelp {
		verticalOverhead = 8
	}
	panelRowsBudget := maxInt(10, innerH-verticalOverhead)

	topH := int(math.Round(float64(panelRowsBudget) * 0.58))
	topH = clampInt(topH, minMonitorBodyLines+2, maxInt(minMonitorBodyLines+2, panelRowsBudget-5))
	bottomH := maxInt(5, panelRowsBudget-topH)

	scenarioW := int(math.Round(float64(usableW) * 0.42))
	scenarioW = clampInt(scenarioW, 28, usableW-30)
	monitorW := usableW - scenarioW

	decisionsW := int(math.Round(float64(usableW) * 0.52))
	decisionsW = clampInt(decisionsW, 28, usableW-26)
	analyticsW := usableW - decisionsW

	scenarioInnerW := maxInt(20, scenarioW-6)
	scenarioViewH := maxInt(1, topH-2)
	m.scenarioView.Width = scenarioInnerW
	m.scenarioView.Height = scenarioViewH
	m.scenarioW = scenarioInnerW + 4
	m.scenarioH = scenarioViewH + 1

	monitorInnerW := maxInt(24, monitorW-6)
	m.monitorW = monitorInnerW + 4
	m.monitorH = scenarioViewH + 1

	decisionsInnerW := maxInt(22, decisionsW-6)
	decisionsViewH := maxInt(1, bottomH-2)
	m.decisionView.Width = decisionsInnerW
	m.decisionView.Height = decisionsViewH
	m.decisionsW = decisionsInnerW + 4
	m.decisionsH = decisionsViewH + 1

	analyticsInnerW := maxInt(20, analyticsW-6)
	analyticsViewH := maxInt(1, bottomH-2)
	m.analyticsView.Width = analyticsInnerW
	m.analyticsView.Height = analyticsViewH
	m.analyticsW = analyticsInnerW + 4
	m.analyticsH = analyticsViewH + 1
}

func (m *Model) refreshScenarioView() {
	if len(m.scenarios) == 0 {
		m.scenarioView.SetContent("Scenario library is empty.\nIs the control service running?")
		m.scenarioView.SetYOffset(0)
		return
	}

	m.scenarioCursor = clampInt(m.scenarioCursor, 0, len(m.scenarios)-1)
	width := maxInt(24, m.scenarioView.Width)

	lines := make([]string, 0, len(m.scenarios)*2+6)
	selectedTop := 0
	for idx, sc := range m.scenarios {
		cursor := "  "
		if idx == m.scenarioCursor {
			cursor = "> "
			selectedTop = len(lines)
		}
		title := fmt.Sprintf("%s%s  %s", cursor, truncateText(sc.Name, width-12), sc.Badge)
		detail := fmt.Sprintf("    %s | %s agents", sc.Complexity, sc.Agents)
		if idx == m.scenarioCursor {
			title = scenarioSelectedStyle.Render(title)
			detail = scenarioSelectedStyle.Render(detail)
		}
		lines = append(lines, title, detail)
	}

	sel := m.scenarios[m.scenarioCursor]
	lines = append(lines, "", subHeaderStyle.Render(truncateText(sel.Description, width)))
	if len(sel.Features) > 0 {
		lines = append(lines, subHeaderStyle.Render(truncateText("features: "+strings.Join(sel.Features, ", "), width)))
	}

	m.scenarioView.SetContent(strings.Join(lines, "\n"))

	viewH := maxInt(1, m.scenarioView.Height)
	maxOffset := maxInt(0, len(lines)-viewH)
	m.scenarioView.SetYOffset(clampInt(selectedTop-viewH/2, 0, maxOffset))
}

func (m *Model) refreshDecisionView() {
	if len(m.decisions) == 0 {
		m.decisionView.SetContent("No controller decisions yet.\nThe log fills in while the adaptive controller runs.")
		return
	}
	width := maxInt(24, m.decisionView.Width)
	lines := make([]string, 0, len(m.decisions))
	for _, entry := range m.decisions {
		lines = append(lines, truncateText(formatDecision(entry), width))
	}
	m.decisionView.SetContent(strings.Join(lines, "\n"))
	if m.focusPane != paneDecisions {
		m.decisionView.GotoTop()
	}
}

func (m *Model) refreshAnalyticsView() {
	m.analyticsView.SetContent(m.renderAnalytics(maxInt(24, m.analyticsView.Width)))
}

func (m Model) renderMonitor() string {
	width := maxInt(24, m.monitorW-4)

	runLabel := "IDLE"
	if m.state.Running {
		runLabel = "RUNNING"
	}
	lines := []string{
		fmt.Sprintf("step %d | %s", m.state.Step, runLabel),
		"",
		"             adaptive      fixed",
		fmt.Sprintf("wait (s)  %10.2f %10.2f", m.state.RL.WaitingTime, m.state.Fixed.WaitingTime),
		fmt.Sprintf("queue     %10.2f %10.2f", m.state.RL.QueueLength, m.state.Fixed.QueueLength),
		fmt.Sprintf("through   %10.0f %10.0f", m.state.RL.Throughput, m.state.Fixed.Throughput),
		"",
	}

	trendW := maxInt(8, width-5)
	rlSeries := make([]float64, 0, len(m.history))
	fixedSeries := make([]float64, 0, len(m.history))
	peak := 0.0
	for _, sample := range m.history {
		rlSeries = append(rlSeries, sample.RLWait)
		fixedSeries = append(fixedSeries, sample.FixedWait)
		if sample.RLWait > peak {
			peak = sample.RLWait
		}
		if sample.FixedWait > peak {
			peak = sample.FixedWait
		}
	}
	lines = append(lines,
		subHeaderStyle.Render(fmt.Sprintf("wait trend, last %d steps (peak %.1fs)", len(m.history), peak)),
		"rl   "+renderTrendRow(rlSeries, trendW, peak, rlWavePalette),
		"fix  "+renderTrendRow(fixedSeries, trendW, peak, fixedWavePalette),
		"",
		renderAgentsLine(m.state.Agents, width),
	)
	return strings.Join(lines, "\n")
}

func (m Model) renderAnalytics(width int) string {
	if m.comparison == nil {
		return "No comparison data yet.\nAggregates appear once both controllers have reported."
	}

	gain := engine.EfficiencyGain(m.comparison)
	radar := engine.Radar(m.comparison)
	cmp := m.comparison

	lines := []string{
		statusStyle.Render(fmt.Sprintf("efficiency gain: %+.1f%% waiting time vs fixed", gain)),
		"",
		"             adaptive      fixed",
		fmt.Sprintf("avg wait  %10.2f %10.2f", cmp.RL.AvgWaitingTime, cmp.Fixed.AvgWaitingTime),
		fmt.Sprintf("avg queue %10.2f %10.2f", cmp.RL.AvgQueueLength, cmp.Fixed.AvgQueueLength),
		fmt.Sprintf("peak wait %10.2f %10.2f", cmp.RL.MaxWaitingTime, cmp.Fixed.MaxWaitingTime),
		fmt.Sprintf("through   %10.0f %10.0f", cmp.RL.TotalThroughput, cmp.Fixed.TotalThroughput),
		"",
		truncateText(fmt.Sprintf("improvement: wait %+.1f%% | queue %+.1f%% | throughput %+.1f%%",
			cmp.Improvement.WaitingTimeReduction,
			cmp.Improvement.QueueLengthReduction,
			cmp.Improvement.ThroughputIncrease,
		), width),
		"",
		subHeaderStyle.Render("axis scores, higher is better"),
		renderAxisRow("wait", radar.RL.WaitingTime, radar.Fixed.WaitingTime),
		renderAxisRow("queue", radar.RL.QueueLength, radar.Fixed.QueueLength),
		renderAxisRow("peak", radar.RL.PeakWait, radar.Fixed.PeakWait),
		renderAxisRow("through", radar.RL.Throughput, radar.Fixed.Throughput),
	}
	if len(cmp.Series.RLWaiting) > 0 {
		lines = append(lines, "", subHeaderStyle.Render(fmt.Sprintf("series: %d points per controller", len(cmp.Series.RLWaiting))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLaunchPrompt(width int) string {
	sel := api.Scenario{Name: "unknown"}
	if len(m.scenarios) > 0 {
		sel = m.scenarios[clampInt(m.scenarioCursor, 0, len(m.scenarios)-1)]
	}
	return strings.Join([]string{
		truncateText(fmt.Sprintf("%s (%s, %s agents)", sel.Name, sel.Complexity, sel.Agents), width),
		subHeaderStyle.Render(truncateText(sel.Description, width)),
		"",
		"Vehicles to spawn:",
		m.carsInput.View(),
		"",
		subHeaderStyle.Render("enter launch | esc cancel"),
	}, "\n")
}

func (m Model) renderFooter(width int) string {
	linkLabel := "link " + m.link.String()
	switch m.link {
	case feed.StatusConnected:
		linkLabel = linkUpStyle.Render(linkLabel)
	case feed.StatusConnecting:
		linkLabel = subHeaderStyle.Render(linkLabel)
	default:
		linkLabel = linkDownStyle.Render(linkLabel)
	}

	age := "never"
	if !m.lastUpdateAt.IsZero() {
		age = fmt.Sprintf("%ds ago", int(time.Since(m.lastUpdateAt).Seconds()))
	}
	parts := []string{
		linkLabel,
		fmt.Sprintf("drops %d", m.drops),
		"updated " + age,
	}
	if last := m.lastEngineLog(); last != "" {
		parts = append(parts, truncateText(last, maxInt(16, width-48)))
	}
	return subHeaderStyle.Render(strings.Join(parts, " | "))
}

func (m Model) lastEngineLog() string {
	if len(m.engineLogs) == 0 {
		return ""
	}
	return m.engineLogs[len(m.engineLogs)-1]
}

func formatDecision(entry api.DecisionEntry) string {
	head := fmt.Sprintf("step %4d | %-6s", entry.Step, entry.TLSID)
	switch entry.Kind {
	case api.KindEmergency:
		return head + fmt.Sprintf(" | EMERGENCY override -> phase %d", entry.Action)
	case api.KindEmergencyMaintain:
		return head + " | emergency hold, phase kept"
	case api.KindDetection:
		msg := strings.TrimSpace(entry.Message)
		if msg == "" {
			msg = "emergency vehicle detected"
		}
		if entry.VehicleID != "" {
			msg += " (" + entry.VehicleID + ")"
		}
		return head + " | " + msg
	default:
		return head + fmt.Sprintf(" | phase %d | wait %.1fs | queue %d", entry.Action, entry.WaitingTime, entry.QueueLength)
	}
}

func renderAgentsLine(agents []api.AgentSnapshot, width int) string {
	if len(agents) == 0 {
		return subHeaderStyle.Render("no agent telemetry yet")
	}
	parts := make([]string, 0, len(agents))
	for _, agent := range agents {
		part := fmt.Sprintf("%s p%d q%d", agent.TLSID, agent.CurrentPhase, agent.QueueLength)
		if agent.Emergency {
			part += "!"
		}
		parts = append(parts, part)
	}
	return truncateText(strings.Join(parts, "  "), maxInt(8, width))
}

func renderAxisRow(label string, rlScore, fixedScore float64) string {
	return fmt.Sprintf("%-7s rl %s %3.0f | fx %s %3.0f",
		label,
		renderScoreMeter(rlScore, 8), rlScore,
		renderScoreMeter(fixedScore, 8), fixedScore,
	)
}

func renderScoreMeter(percent float64, width int) string {
	width = maxInt(4, width)
	p := clampFloat(percent, 0, 100)
	filled := int(math.Round((p / 100.0) * float64(width)))
	filled = clampInt(filled, 0, width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

const (
	waveformPadRune   = '▁'
	waveformGlyphsRaw = "▁▂▃▄▅▆▇█"
)

// renderTrendRow maps raw waiting-time samples onto glyph heights against a
// shared peak so the adaptive and fixed rows stay directly comparable.
func renderTrendRow(samples []float64, width int, peak float64, palette []lipgloss.Color) string {
	width = maxInt(4, width)
	styles := waveformStyles(palette)
	glyphs := []rune(waveformGlyphsRaw)
	base := lipgloss.NewStyle().
		Foreground(waveformLow).
		Background(waveformBandBG)

	cells := make([]string, width)
	for idx := 0; idx < width; idx++ {
		cells[idx] = base.Render(string(waveformPadRune))
	}
	if len(samples) == 0 || peak <= 0 {
		return strings.Join(cells, "")
	}

	count := minInt(len(samples), width)
	window := samples[len(samples)-count:]
	start := width - len(window)
	for idx, value := range window {
		signal := clampFloat(value/peak, 0, 1)
		level := clampInt(int(math.Round(signal*float64(len(glyphs)-1))), 0, len(glyphs)-1)
		colorIdx := clampInt(int(math.Round(signal*float64(len(styles)-1))), 0, len(styles)-1)
		cells[start+idx] = styles[colorIdx].Render(string(glyphs[level]))
	}
	return strings.Join(cells, "")
}

func waveformStyles(palette []lipgloss.Color) []lipgloss.Style {
	if len(palette) == 0 {
		palette = rlWavePalette
	}
	styles := make([]lipgloss.Style, len(palette))
	for idx, color := range palette {
		styles[idx] = lipgloss.NewStyle().
			Foreground(color).
			Background(waveformBandBG)
	}
	return styles
}

func fitTextHeight(text string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func truncateText(raw string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(raw)
	if len(runes) <= maxLen {
		return raw
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func filepathBase(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return filepath.Base(trimmed)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampFloat(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
