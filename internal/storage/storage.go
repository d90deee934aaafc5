package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"greenwave-tui/internal/api"
	"greenwave-tui/internal/engine"
)

type Store struct {
	rootDir     string
	sessionsDir string
}

type SessionSummary struct {
	Scenario       string  `json:"scenario"`
	SavedAt        string  `json:"saved_at"`
	Steps          int     `json:"steps"`
	EfficiencyGain float64 `json:"efficiency_gain"`
	AvgWaitRL      float64 `json:"avg_wait_rl"`
	AvgWaitFixed   float64 `json:"avg_wait_fixed"`
	Directory      string  `json:"directory"`
}

// SessionReport is the full export of one observed run: the final merged
// state, the retained history window, the decision log, and whatever
// comparison aggregates the backend had produced by save time.
type SessionReport struct {
	Summary    SessionSummary         `json:"summary"`
	Config     api.InitConfig         `json:"config"`
	State      engine.SimulationState `json:"state"`
	History    []engine.HistorySample `json:"history"`
	Decisions  []api.DecisionEntry    `json:"decisions"`
	Comparison *api.Comparison        `json:"comparison,omitempty"`
}

func NewStore(rootDir string) (*Store, error) {
	sessionsDir := filepath.Join(rootDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{rootDir: rootDir, sessionsDir: sessionsDir}, nil
}

func (s *Store) SessionsDir() string {
	return s.sessionsDir
}

func (s *Store) SaveReport(report SessionReport) (SessionSummary, error) {
	scenario := strings.TrimSpace(report.Config.Scenario)
	if scenario == "" {
		scenario = "unknown"
	}

	now := time.Now().UTC()
	stamp := now.Format("20060102-150405")
	dirName := fmt.Sprintf("%s-%s", stamp, slugify(scenario))
	dirPath := filepath.Join(s.sessionsDir, dirName)
	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return SessionSummary{}, fmt.Errorf("create session dir: %w", err)
	}

	summary := SessionSummary{
		Scenario:       scenario,
		SavedAt:        now.Format(time.RFC3339),
		Steps:          report.State.Step,
		EfficiencyGain: engine.EfficiencyGain(report.Comparison),
		Directory:      dirPath,
	}
	if report.Comparison != nil {
		summary.AvgWaitRL = report.Comparison.RL.AvgWaitingTime
		summary.AvgWaitFixed = report.Comparison.Fixed.AvgWaitingTime
	}
	report.Summary = summary

	if err := writeJSON(filepath.Join(dirPath, "summary.json"), summary); err != nil {
		return SessionSummary{}, err
	}
	if err := writeJSON(filepath.Join(dirPath, "report.json"), report); err != nil {
		return SessionSummary{}, err
	}
	return summary, nil
}

func (s *Store) List(limit int) ([]SessionSummary, error) {
	entries, err := os.ReadDir(s.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		summaryPath := filepath.Join(s.sessionsDir, entry.Name(), "summary.json")
		blob, err := os.ReadFile(summaryPath)
		if err != nil {
			continue
		}
		var summary SessionSummary
		if err := json.Unmarshal(blob, &summary); err != nil {
			continue
		}
		if summary.Directory == "" {
			summary.Directory = filepath.Join(s.sessionsDir, entry.Name())
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].SavedAt > summaries[j].SavedAt
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *Store) LoadReport(directory string) (*SessionReport, error) {
	dir := strings.TrimSpace(directory)
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(s.sessionsDir, dir)
	}

	var report SessionReport
	if err := readJSON(filepath.Join(dir, "report.json"), &report); err == nil {
		if report.Summary.Directory == "" {
			report.Summary.Directory = dir
		}
		return &report, nil
	}

	var summary SessionSummary
	if err := readJSON(filepath.Join(dir, "summary.json"), &summary); err != nil {
		return nil, err
	}
	summary.Directory = dir
	return &SessionReport{Summary: summary}, nil
}

// slugify keeps the session directory name shell-friendly.
func slugify(scenario string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(scenario) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "unknown"
	}
	if len(slug) > 24 {
		slug = slug[:24]
	}
	return slug
}

func writeJSON(path string, value any) error {
	blob, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json for %s: %w", path, err)
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, out any) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(blob, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
