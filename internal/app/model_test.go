package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"greenwave-tui/internal/api"
	"greenwave-tui/internal/engine"
	"greenwave-tui/internal/storage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// fakeBackend satisfies engine.Backend without a network in sight.
type fakeBackend struct {
	mu       sync.Mutex
	calls    []string
	startErr error
	stopErr  error
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeBackend) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) Initialize(ctx context.Context, cfg api.InitConfig) error {
	f.record("initialize")
	return nil
}

func (f *fakeBackend) StartSimulation(ctx context.Context) error {
	f.record("start")
	return f.startErr
}

func (f *fakeBackend) StopSimulation(ctx context.Context) error {
	f.record("stop")
	return f.stopErr
}

func (f *fakeBackend) ResetSimulation(ctx context.Context) error {
	f.record("reset")
	return nil
}

func (f *fakeBackend) Decisions(ctx context.Context, limit int) ([]api.DecisionEntry, error) {
	return nil, nil
}

func (f *fakeBackend) Comparison(ctx context.Context) (*api.Comparison, error) {
	return nil, api.ErrNoComparison
}

func (f *fakeBackend) LatestMetrics(ctx context.Context) (*api.MetricsPair, error) {
	return &api.MetricsPair{}, nil
}

func newTestModel(t *testing.T) (Model, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{}
	eng, err := engine.New(backend, engine.Config{
		SocketURL:    "ws://127.0.0.1:9/ws/simulation",
		PollInterval: time.Hour,
	})
	if err != nil {
		t.Fatalf("engine.New returned error: %v", err)
	}
	client, err := api.New("http://127.0.0.1:9")
	if err != nil {
		t.Fatalf("api.New returned error: %v", err)
	}
	sessions, err := storage.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("storage.NewStore returned error: %v", err)
	}
	return NewModel(client, eng, sessions), backend
}

func testScenarios() []api.Scenario {
	return []api.Scenario{
		{
			ID:          "rush_hour",
			Name:        "Rush Hour",
			Complexity:  "high",
			Agents:      "04",
			Description: "Peak load across a four-way grid.",
			Badge:       "[hot]",
			Features:    []string{"surges", "emergency traffic"},
		},
		{
			ID:         "grid_4x4",
			Name:       "Grid 4x4",
			Complexity: "medium",
			Agents:     "16",
		},
	}
}

func withScenarios(t *testing.T, m Model) Model {
	t.Helper()
	nextModel, _ := m.Update(scenariosLoadedMsg{items: testScenarios()})
	return nextModel.(Model)
}

func TestViewBeforeWindowSizeShowsBootScreen(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	if got := m.View(); got != "Booting greenwave-tui..." {
		t.Fatalf("unexpected boot view: %q", got)
	}
}

func TestWindowSizeRendersAllPanels(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	sizedModel, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	sized := sizedModel.(Model)
	if !sized.ready {
		t.Fatalf("expected window size to mark the model ready")
	}

	view := sized.View()
	for _, want := range []string{
		"Greenwave Control Room",
		"Scenario Library",
		"Live Monitor",
		"Decision Log",
		"Comparative Analytics",
	} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q", want)
		}
	}
}

func TestScenariosLoadedPopulatesLibrary(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	next := withScenarios(t, m)

	if len(next.scenarios) != 2 {
		t.Fatalf("expected 2 scenarios, got %d", len(next.scenarios))
	}
	if next.statusText != "Scenario library loaded (2 scenarios). Press enter to launch." {
		t.Fatalf("unexpected status text: %q", next.statusText)
	}
}

func TestScenariosLoadFailureShowsError(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, _ := m.Update(scenariosLoadedMsg{err: errors.New("connection refused")})
	next := nextModel.(Model)

	if !strings.Contains(next.errorText, "connection refused") {
		t.Fatalf("unexpected error text: %q", next.errorText)
	}
	if next.statusText != "Scenario library unavailable." {
		t.Fatalf("unexpected status text: %q", next.statusText)
	}
}

func TestTabCyclesFocusPanes(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	if m.focusPane != paneScenarios {
		t.Fatalf("expected initial focus on scenarios")
	}

	order := []focusPane{paneMonitor, paneDecisions, paneAnalytics, paneScenarios}
	for _, want := range order {
		nextModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = nextModel.(Model)
		if m.focusPane != want {
			t.Fatalf("expected focus %v, got %v", want, m.focusPane)
		}
	}
	if m.statusText != "Focus: scenarios" {
		t.Fatalf("unexpected status text: %q", m.statusText)
	}

	backModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	back := backModel.(Model)
	if back.focusPane != paneAnalytics {
		t.Fatalf("expected shift+tab to cycle backwards, got %v", back.focusPane)
	}
}

func TestScenarioCursorMovesAndClamps(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m = withScenarios(t, m)

	downModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	down := downModel.(Model)
	if down.scenarioCursor != 1 {
		t.Fatalf("expected cursor 1 after down, got %d", down.scenarioCursor)
	}

	stillModel, _ := down.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	still := stillModel.(Model)
	if still.scenarioCursor != 1 {
		t.Fatalf("cursor should clamp at the last scenario, got %d", still.scenarioCursor)
	}

	upModel, _ := still.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("k")})
	up := upModel.(Model)
	if up.scenarioCursor != 0 {
		t.Fatalf("expected cursor 0 after up, got %d", up.scenarioCursor)
	}

	topModel, _ := up.Update(tea.KeyMsg{Type: tea.KeyUp})
	top := topModel.(Model)
	if top.scenarioCursor != 0 {
		t.Fatalf("cursor should clamp at the first scenario, got %d", top.scenarioCursor)
	}
}

func TestEnterOpensLaunchPrompt(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m = withScenarios(t, m)

	nextModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := nextModel.(Model)

	if !next.showLaunchPrompt {
		t.Fatalf("expected launch prompt to open")
	}
	if next.carsInput.Value() != "1000" {
		t.Fatalf("expected default vehicle count in input, got %q", next.carsInput.Value())
	}
	if !strings.Contains(next.statusText, "Rush Hour") {
		t.Fatalf("status should name the scenario: %q", next.statusText)
	}
}

func TestEnterWithoutScenariosShowsError(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := nextModel.(Model)

	if next.showLaunchPrompt {
		t.Fatalf("prompt must not open with an empty library")
	}
	if next.errorText != "No scenarios loaded yet." {
		t.Fatalf("unexpected error text: %q", next.errorText)
	}
}

func TestLaunchPromptRejectsBadVehicleCount(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m = withScenarios(t, m)
	openedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	opened := openedModel.(Model)

	opened.carsInput.SetValue("-3")
	rejectedModel, cmd := opened.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rejected := rejectedModel.(Model)

	if cmd != nil {
		t.Fatalf("bad input must not launch anything")
	}
	if !rejected.showLaunchPrompt {
		t.Fatalf("prompt should stay open on bad input")
	}
	if rejected.errorText != "Vehicle count must be a positive integer." {
		t.Fatalf("unexpected error text: %q", rejected.errorText)
	}
}

func TestLaunchPromptEscCancels(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m = withScenarios(t, m)
	openedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	opened := openedModel.(Model)

	cancelledModel, cmd := opened.Update(tea.KeyMsg{Type: tea.KeyEsc})
	cancelled := cancelledModel.(Model)

	if cancelled.showLaunchPrompt {
		t.Fatalf("expected prompt to close on esc")
	}
	if cancelled.statusText != "Launch cancelled." {
		t.Fatalf("unexpected status text: %q", cancelled.statusText)
	}
	if cmd == nil {
		t.Fatalf("expected a screen clear after closing the prompt")
	}
}

func TestLaunchPromptEnterClosesAndLaunches(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m = withScenarios(t, m)
	openedModel, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	opened := openedModel.(Model)

	opened.carsInput.SetValue("800")
	launchedModel, cmd := opened.Update(tea.KeyMsg{Type: tea.KeyEnter})
	launched := launchedModel.(Model)

	if launched.showLaunchPrompt {
		t.Fatalf("expected prompt to close after enter")
	}
	if cmd == nil {
		t.Fatalf("expected a launch command")
	}
	if launched.statusText != "Launching Rush Hour..." {
		t.Fatalf("unexpected status text: %q", launched.statusText)
	}
}

func TestLaunchCmdInitializesThenStarts(t *testing.T) {
	t.Parallel()

	m, backend := newTestModel(t)
	m = withScenarios(t, m)

	cfg := api.DefaultInitConfig("rush_hour")
	cfg.NCars = 800
	msg := launchCmd(m.eng, cfg)()

	done, ok := msg.(commandDoneMsg)
	if !ok {
		t.Fatalf("expected commandDoneMsg, got %T", msg)
	}
	if done.err != nil {
		t.Fatalf("launch returned error: %v", done.err)
	}
	if calls := backend.callLog(); len(calls) != 2 || calls[0] != "initialize" || calls[1] != "start" {
		t.Fatalf("unexpected backend calls: %v", calls)
	}
	if !m.eng.Store().State().Running {
		t.Fatalf("confirmed launch should mark the run live")
	}

	nextModel, cmd := m.Update(done)
	next := nextModel.(Model)
	if next.lastLaunch != cfg {
		t.Fatalf("launch config not retained: %+v", next.lastLaunch)
	}
	if next.statusText != "Simulation launched: rush_hour (800 vehicles)" {
		t.Fatalf("unexpected status text: %q", next.statusText)
	}
	if cmd == nil {
		t.Fatalf("expected spinner tick after a confirmed launch")
	}
}

func TestCommandPendingShowsCalmStatus(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, _ := m.Update(commandDoneMsg{
		kind: engine.CommandStart,
		err:  fmt.Errorf("start: %w", engine.ErrCommandPending),
	})
	next := nextModel.(Model)

	if next.statusText != "Command already in flight; hold on." {
		t.Fatalf("unexpected status text: %q", next.statusText)
	}
	if next.errorText != "" {
		t.Fatalf("a pending command is not an error: %q", next.errorText)
	}
}

func TestCommandFailureSetsErrorText(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, _ := m.Update(commandDoneMsg{
		kind: engine.CommandStop,
		err:  errors.New("backend exploded"),
	})
	next := nextModel.(Model)

	if next.errorText != "Stop failed: backend exploded" {
		t.Fatalf("unexpected error text: %q", next.errorText)
	}
}

func TestStopGuardWithoutRunningSimulation(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	next := nextModel.(Model)

	if cmd != nil {
		t.Fatalf("guard must not issue a stop command")
	}
	if next.errorText != "No running simulation to stop." {
		t.Fatalf("unexpected error text: %q", next.errorText)
	}
}

func TestStartGuardWhileRunning(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	m.state.Running = true
	nextModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	next := nextModel.(Model)

	if cmd != nil {
		t.Fatalf("guard must not issue a start command")
	}
	if next.errorText != "Simulation is already running." {
		t.Fatalf("unexpected error text: %q", next.errorText)
	}
}

func TestResumeRoundTrip(t *testing.T) {
	t.Parallel()

	m, backend := newTestModel(t)
	pressedModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	pressed := pressedModel.(Model)
	if cmd == nil {
		t.Fatalf("expected a start command")
	}
	if pressed.statusText != "Resuming simulation..." {
		t.Fatalf("unexpected status text: %q", pressed.statusText)
	}

	msg := cmd()
	done, ok := msg.(commandDoneMsg)
	if !ok {
		t.Fatalf("expected commandDoneMsg, got %T", msg)
	}
	if done.kind != engine.CommandStart || done.err != nil {
		t.Fatalf("unexpected command result: %+v", done)
	}
	if calls := backend.callLog(); len(calls) != 1 || calls[0] != "start" {
		t.Fatalf("unexpected backend calls: %v", calls)
	}

	resumedModel, _ := pressed.Update(done)
	resumed := resumedModel.(Model)
	if resumed.statusText != "Simulation resumed." {
		t.Fatalf("unexpected status text: %q", resumed.statusText)
	}
}

func TestResumeFailureSurfacesBackendError(t *testing.T) {
	t.Parallel()

	m, backend := newTestModel(t)
	backend.startErr = errors.New("controller offline")

	pressedModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	pressed := pressedModel.(Model)
	if cmd == nil {
		t.Fatalf("expected a start command")
	}

	failedModel, _ := pressed.Update(cmd())
	failed := failedModel.(Model)
	if !strings.Contains(failed.errorText, "Resume failed: ") {
		t.Fatalf("unexpected error text: %q", failed.errorText)
	}
	if !strings.Contains(failed.errorText, "controller offline") {
		t.Fatalf("backend reason missing from error text: %q", failed.errorText)
	}
}

func TestStopFailureSurfacesBackendError(t *testing.T) {
	t.Parallel()

	m, backend := newTestModel(t)
	backend.stopErr = errors.New("no active run")
	m.state.Running = true

	pressedModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	pressed := pressedModel.(Model)
	if cmd == nil {
		t.Fatalf("expected a stop command")
	}

	failedModel, _ := pressed.Update(cmd())
	failed := failedModel.(Model)
	if !strings.Contains(failed.errorText, "Stop failed: ") {
		t.Fatalf("unexpected error text: %q", failed.errorText)
	}
}

func TestStoreUpdatePullsEngineState(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	frame := `{"step":10,"isRunning":true,"rl_metrics":{"waiting_time":5.2,"queue_length":3.1,"throughput":210},"fixed_metrics":{"waiting_time":9.8,"queue_length":7.4,"throughput":180}}`
	if err := m.eng.Store().ApplyRaw([]byte(frame)); err != nil {
		t.Fatalf("ApplyRaw returned error: %v", err)
	}

	nextModel, cmd := m.Update(storeUpdatedMsg{ok: true})
	next := nextModel.(Model)

	if next.state.Step != 10 || !next.state.Running {
		t.Fatalf("state not pulled from the store: %+v", next.state)
	}
	if len(next.history) != 1 || next.history[0].FixedWait != 9.8 {
		t.Fatalf("history not pulled from the store: %+v", next.history)
	}
	if next.lastUpdateAt.IsZero() {
		t.Fatalf("expected the update timestamp to move")
	}
	if cmd == nil {
		t.Fatalf("expected the subscription wait to re-arm")
	}
}

func TestStoreUpdateStopsWhenChannelClosed(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, cmd := m.Update(storeUpdatedMsg{ok: false})
	next := nextModel.(Model)

	if cmd != nil {
		t.Fatalf("closed subscription must not re-arm")
	}
	if next.state.Step != 0 {
		t.Fatalf("unexpected state change: %+v", next.state)
	}
}

func TestExportGuardWithNothingObserved(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	nextModel, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	next := nextModel.(Model)

	if cmd != nil {
		t.Fatalf("guard must not issue a save command")
	}
	if next.errorText != "Nothing to export yet." {
		t.Fatalf("unexpected error text: %q", next.errorText)
	}
}

func TestExportSavesSessionReport(t *testing.T) {
	t.Parallel()

	m, _ := newTestModel(t)
	frame := `{"step":120,"is_running":false,"rl_metrics":{"waiting_time":5.2,"queue_length":3.1,"throughput":210},"fixed_metrics":{"waiting_time":9.8,"queue_length":7.4,"throughput":180}}`
	if err := m.eng.Store().ApplyRaw([]byte(frame)); err != nil {
		t.Fatalf("ApplyRaw returned error: %v", err)
	}
	pulledModel, _ := m.Update(storeUpdatedMsg{ok: true})
	pulled := pulledModel.(Model)
	pulled.lastLaunch = api.DefaultInitConfig("rush_hour")

	pressedModel, cmd := pulled.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	pressed := pressedModel.(Model)
	if cmd == nil {
		t.Fatalf("expected a save command")
	}
	if pressed.statusText != "Saving session report..." {
		t.Fatalf("unexpected status text: %q", pressed.statusText)
	}

	msg := cmd()
	saved, ok := msg.(reportSavedMsg)
	if !ok {
		t.Fatalf("expected reportSavedMsg, got %T", msg)
	}
	if saved.err != nil {
		t.Fatalf("save returned error: %v", saved.err)
	}
	if _, err := os.Stat(filepath.Join(saved.summary.Directory, "report.json")); err != nil {
		t.Fatalf("report file missing: %v", err)
	}

	doneModel, _ := pressed.Update(saved)
	done := doneModel.(Model)
	if !strings.Contains(done.statusText, "Saved session report: ") {
		t.Fatalf("unexpected status text: %q", done.statusText)
	}
}

func TestViewStaysWithinWindowHeightWhenPromptVisible(t *testing.T) {
	t.Parallel()

	const width = 120
	const height = 30

	m, _ := newTestModel(t)
	m = withScenarios(t, m)
	sizedModel, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	sized := sizedModel.(Model)
	openedModel, _ := sized.Update(tea.KeyMsg{Type: tea.KeyEnter})
	opened := openedModel.(Model)
	if !opened.showLaunchPrompt {
		t.Fatalf("expected launch prompt to open")
	}

	view := opened.View()
	lineCount := strings.Count(view, "\n") + 1
	if lineCount > height {
		t.Fatalf("expected view line count <= window height (%d), got %d", height, lineCount)
	}
	if !strings.Contains(view, "Launch Scenario") {
		t.Fatalf("expected launch panel title in view")
	}
	if !strings.Contains(view, "Vehicles to spawn:") {
		t.Fatalf("expected vehicle count label in view")
	}
	if !strings.Contains(view, "enter launch | esc cancel") {
		t.Fatalf("expected prompt controls in view")
	}
}

func TestFormatDecisionVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		entry api.DecisionEntry
		want  string
	}{
		{
			name: "normal decision",
			entry: api.DecisionEntry{
				Step: 120, TLSID: "B1", Action: 2,
				WaitingTime: 4.5, QueueLength: 7,
				Kind: api.KindDecision,
			},
			want: "step  120 | B1     | phase 2 | wait 4.5s | queue 7",
		},
		{
			name: "emergency override",
			entry: api.DecisionEntry{
				Step: 130, TLSID: "B1", Action: 3,
				Kind: api.KindEmergency,
			},
			want: "step  130 | B1     | EMERGENCY override -> phase 3",
		},
		{
			name: "emergency hold",
			entry: api.DecisionEntry{
				Step: 131, TLSID: "B1",
				Kind: api.KindEmergencyMaintain,
			},
			want: "step  131 | B1     | emergency hold, phase kept",
		},
		{
			name: "detection with vehicle",
			entry: api.DecisionEntry{
				Step: 129, TLSID: "B1",
				Kind: api.KindDetection, VehicleID: "EV_7",
			},
			want: "step  129 | B1     | emergency vehicle detected (EV_7)",
		},
		{
			name: "detection with message",
			entry: api.DecisionEntry{
				Step: 129, TLSID: "B1",
				Kind: api.KindDetection, Message: "ambulance inbound",
			},
			want: "step  129 | B1     | ambulance inbound",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := formatDecision(tc.entry); got != tc.want {
				t.Fatalf("formatDecision = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRenderScoreMeter(t *testing.T) {
	t.Parallel()

	if got := renderScoreMeter(0, 8); got != "[--------]" {
		t.Fatalf("empty meter: %q", got)
	}
	if got := renderScoreMeter(100, 8); got != "[########]" {
		t.Fatalf("full meter: %q", got)
	}
	if got := renderScoreMeter(50, 8); got != "[####----]" {
		t.Fatalf("half meter: %q", got)
	}
	if got := renderScoreMeter(250, 8); got != "[########]" {
		t.Fatalf("overdriven meter should clamp: %q", got)
	}
}

func TestRenderTrendRowKeepsWidth(t *testing.T) {
	t.Parallel()

	empty := renderTrendRow(nil, 12, 0, rlWavePalette)
	if lipgloss.Width(empty) != 12 {
		t.Fatalf("empty row width = %d, want 12", lipgloss.Width(empty))
	}

	samples := make([]float64, 30)
	for idx := range samples {
		samples[idx] = float64(idx)
	}
	row := renderTrendRow(samples, 12, 29, fixedWavePalette)
	if lipgloss.Width(row) != 12 {
		t.Fatalf("long row width = %d, want 12", lipgloss.Width(row))
	}

	short := renderTrendRow([]float64{1, 2}, 12, 2, rlWavePalette)
	if lipgloss.Width(short) != 12 {
		t.Fatalf("short row width = %d, want 12", lipgloss.Width(short))
	}
}

func TestTruncateText(t *testing.T) {
	t.Parallel()

	if got := truncateText("short", 10); got != "short" {
		t.Fatalf("short text should pass through, got %q", got)
	}
	if got := truncateText("a long description here", 10); got != "a long ..." {
		t.Fatalf("unexpected truncation: %q", got)
	}
	if got := truncateText("abcdef", 3); got != "abc" {
		t.Fatalf("tiny budget should hard-cut, got %q", got)
	}
	if got := truncateText("anything", 0); got != "" {
		t.Fatalf("zero budget should yield empty, got %q", got)
	}
}
