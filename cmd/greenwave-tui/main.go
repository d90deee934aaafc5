package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"greenwave-tui/internal/api"
	"greenwave-tui/internal/app"
	"greenwave-tui/internal/config"
	"greenwave-tui/internal/engine"
	"greenwave-tui/internal/feed"
	"greenwave-tui/internal/storage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
)

type startupOverrides struct {
	serverURL    string
	sessionsDir  string
	pollInterval time.Duration
}

// resolveStartupConfig layers CLI overrides over the optional config file.
// An empty path means defaults only.
func resolveStartupConfig(path string, overrides startupOverrides) (config.Config, error) {
	cfg := config.Default()
	if strings.TrimSpace(path) != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if url := strings.TrimSpace(overrides.serverURL); url != "" {
		cfg.Server.BaseURL = strings.TrimRight(url, "/")
	}
	if dir := strings.TrimSpace(overrides.sessionsDir); dir != "" {
		cfg.Sessions.Dir = dir
	}
	if overrides.pollInterval > 0 {
		cfg.Poll.IntervalMS = int(overrides.pollInterval / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := resolveStartupConfig(c.String("config"), startupOverrides{
		serverURL:    c.String("server"),
		sessionsDir:  c.String("sessions-dir"),
		pollInterval: c.Duration("poll-interval"),
	})
	if err != nil {
		return err
	}

	client, err := api.New(cfg.Server.BaseURL)
	if err != nil {
		return err
	}

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPing()
	if err := client.Health(pingCtx); err != nil {
		return fmt.Errorf("control service unreachable at %s: %w", cfg.Server.BaseURL, err)
	}

	socketURL, err := feed.SocketURL(cfg.Server.BaseURL, cfg.Server.SocketPath)
	if err != nil {
		return err
	}

	eng, err := engine.New(client, engine.Config{
		SocketURL:    socketURL,
		PollInterval: cfg.PollInterval(),
		PollTimeout:  cfg.PollTimeout(),
		BackoffMin:   cfg.BackoffMin(),
		BackoffMax:   cfg.BackoffMax(),
		MaxAttempts:  cfg.Feed.MaxAttempts,
	})
	if err != nil {
		return err
	}

	sessions, err := storage.NewStore(cfg.Sessions.Dir)
	if err != nil {
		return fmt.Errorf("initialize session storage: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = eng.Run(ctx)
	}()

	model := app.NewModel(client, eng, sessions)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}

func main() {
	cliApp := &cli.App{
		Name:  "greenwave-tui",
		Usage: "terminal dashboard for the greenwave dual-controller traffic service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "control service base URL, e.g. http://127.0.0.1:8000",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "sessions-dir",
				Usage: "root directory for saved session reports",
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "decision log and comparison poll cadence",
			},
		},
		Action: run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "greenwave-tui: %v\n", err)
		os.Exit(1)
	}
}
