package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"greenwave-tui/internal/api"
)

// ErrCommandPending rejects a command while an identical one is still in
// flight. Distinct command kinds never block each other.
var ErrCommandPending = errors.New("command already in flight")

type CommandKind string

const (
	CommandInitialize CommandKind = "initialize"
	CommandStart      CommandKind = "start"
	CommandStop       CommandKind = "stop"
	CommandReset      CommandKind = "reset"
)

type commandClient interface {
	Initialize(ctx context.Context, cfg api.InitConfig) error
	StartSimulation(ctx context.Context) error
	StopSimulation(ctx context.Context) error
	ResetSimulation(ctx context.Context) error
}

// Dispatcher turns UI intents into backend commands and mutates the store
// only after the backend confirms. A failed command leaves local state
// exactly as it was.
type Dispatcher struct {
	client commandClient
	store  *Store

	mu      sync.Mutex
	pending map[CommandKind]bool
}

func NewDispatcher(client commandClient, store *Store) *Dispatcher {
	return &Dispatcher{
		client:  client,
		store:   store,
		pending: make(map[CommandKind]bool),
	}
}

func (d *Dispatcher) begin(kind CommandKind) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending[kind] {
		return fmt.Errorf("%s: %w", kind, ErrCommandPending)
	}
	d.pending[kind] = true
	return nil
}

func (d *Dispatcher) end(kind CommandKind) {
	d.mu.Lock()
	delete(d.pending, kind)
	d.mu.Unlock()
}

// Launch initializes the backend with the given run configuration and, once
// that is confirmed, starts the run.
func (d *Dispatcher) Launch(ctx context.Context, cfg api.InitConfig) error {
	if err := d.begin(CommandInitialize); err != nil {
		return err
	}
	defer d.end(CommandInitialize)

	if err := d.client.Initialize(ctx, cfg); err != nil {
		return fmt.Errorf("initialize simulation: %w", err)
	}
	d.store.Reset()
	if err := d.client.StartSimulation(ctx); err != nil {
		return fmt.Errorf("start after initialize: %w", err)
	}
	d.store.SetRunning(true)
	return nil
}

func (d *Dispatcher) Start(ctx context.Context) error {
	if err := d.begin(CommandStart); err != nil {
		return err
	}
	defer d.end(CommandStart)

	if err := d.client.StartSimulation(ctx); err != nil {
		return fmt.Errorf("start simulation: %w", err)
	}
	d.store.SetRunning(true)
	return nil
}

func (d *Dispatcher) Stop(ctx context.Context) error {
	if err := d.begin(CommandStop); err != nil {
		return err
	}
	defer d.end(CommandStop)

	if err := d.client.StopSimulation(ctx); err != nil {
		return fmt.Errorf("stop simulation: %w", err)
	}
	d.store.SetRunning(false)
	return nil
}

func (d *Dispatcher) Reset(ctx context.Context) error {
	if err := d.begin(CommandReset); err != nil {
		return err
	}
	defer d.end(CommandReset)

	if err := d.client.ResetSimulation(ctx); err != nil {
		return fmt.Errorf("reset simulation: %w", err)
	}
	d.store.Reset()
	return nil
}
