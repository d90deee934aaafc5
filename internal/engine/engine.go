package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"greenwave-tui/internal/api"
	"greenwave-tui/internal/feed"
)

const logCap = 600

// Backend is the slice of the REST client the engine drives.
type Backend interface {
	commandClient
	Decisions(ctx context.Context, limit int) ([]api.DecisionEntry, error)
	Comparison(ctx context.Context) (*api.Comparison, error)
	LatestMetrics(ctx context.Context) (*api.MetricsPair, error)
}

type Config struct {
	SocketURL    string
	PollInterval time.Duration
	PollTimeout  time.Duration
	BackoffMin   time.Duration
	BackoffMax   time.Duration
	MaxAttempts  int
}

// Engine owns the store and every goroutine that feeds it: the telemetry
// supervisor, the decision and comparison pollers, and the command
// dispatcher acting on the UI's behalf.
type Engine struct {
	backend  Backend
	store    *Store
	dispatch *Dispatcher
	sup      *feed.Supervisor
	pollers  []*poller

	mu   sync.Mutex
	logs []string
}

func New(backend Backend, cfg Config) (*Engine, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}

	store := NewStore()
	eng := &Engine{
		backend:  backend,
		store:    store,
		dispatch: NewDispatcher(backend, store),
	}

	sup, err := feed.NewSupervisor(feed.Config{
		SocketURL:   cfg.SocketURL,
		BackoffMin:  cfg.BackoffMin,
		BackoffMax:  cfg.BackoffMax,
		MaxAttempts: cfg.MaxAttempts,
		OnStatus: func(status feed.Status) {
			store.SetLink(status)
		},
	})
	if err != nil {
		return nil, err
	}
	eng.sup = sup

	eng.pollers = []*poller{
		{
			name:     "decisions",
			interval: cfg.PollInterval,
			timeout:  cfg.PollTimeout,
			fetch:    eng.fetchDecisions,
			onFail:   eng.notePollFailure,
		},
		{
			name:     "comparison",
			interval: cfg.PollInterval,
			timeout:  cfg.PollTimeout,
			fetch:    eng.fetchComparison,
			onFail:   eng.notePollFailure,
		},
	}
	return eng, nil
}

func (e *Engine) Store() *Store {
	return e.store
}

// Run blocks until ctx is cancelled, pumping telemetry frames into the
// store while the pollers refresh the decision log and comparison data.
func (e *Engine) Run(ctx context.Context) error {
	sink := make(chan json.RawMessage, 64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := e.sup.Run(ctx, sink)
		if err != nil && !errors.Is(err, context.Canceled) {
			e.appendLog(fmt.Sprintf("telemetry link gave up: %v", err))
		}
	}()

	for _, p := range e.pollers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.run(ctx)
		}()
	}

	for raw := range sink {
		if err := e.store.ApplyRaw(raw); err != nil {
			e.appendLog(fmt.Sprintf("dropped frame: %v", err))
		}
	}
	wg.Wait()
	return ctx.Err()
}

func (e *Engine) fetchDecisions(ctx context.Context) error {
	entries, err := e.backend.Decisions(ctx, decisionCap)
	if err != nil {
		return err
	}
	e.store.SetDecisions(entries)
	return nil
}

func (e *Engine) fetchComparison(ctx context.Context) error {
	cmp, err := e.backend.Comparison(ctx)
	if errors.Is(err, api.ErrNoComparison) {
		e.store.SetComparison(nil)
		return nil
	}
	if err != nil {
		return err
	}
	e.store.SetComparison(cmp)
	return nil
}

func (e *Engine) notePollFailure(name string, err error) {
	e.appendLog(fmt.Sprintf("%s poll failed: %v", name, err))
}

// PrimeMetrics seeds the metric panes from the REST snapshot so the UI has
// numbers before the first telemetry frame lands.
func (e *Engine) PrimeMetrics(ctx context.Context) error {
	pair, err := e.backend.LatestMetrics(ctx)
	if err != nil {
		return err
	}
	e.store.primeMetrics(*pair)
	return nil
}

func (e *Engine) Launch(ctx context.Context, cfg api.InitConfig) error {
	return e.dispatch.Launch(ctx, cfg)
}

func (e *Engine) Start(ctx context.Context) error {
	return e.dispatch.Start(ctx)
}

func (e *Engine) Stop(ctx context.Context) error {
	return e.dispatch.Stop(ctx)
}

func (e *Engine) Reset(ctx context.Context) error {
	return e.dispatch.Reset(ctx)
}

func (e *Engine) appendLog(line string) {
	stamp := time.Now().Format("15:04:05")
	e.mu.Lock()
	e.logs = append(e.logs, stamp+" "+line)
	if len(e.logs) > logCap {
		e.logs = e.logs[len(e.logs)-logCap:]
	}
	e.mu.Unlock()
	e.store.notify()
}

func (e *Engine) Logs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.logs))
	copy(out, e.logs)
	return out
}
