package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"greenwave-tui/internal/api"
	"greenwave-tui/internal/feed"
)

// ErrMalformedSnapshot marks telemetry frames that failed to decode. The
// frame is dropped and counted; merged state is left untouched.
var ErrMalformedSnapshot = errors.New("malformed telemetry snapshot")

const decisionCap = 100

// Store is the single owner of all synchronized backend state. Writers are
// the telemetry pump, the pollers, and the command dispatcher; readers get
// deep copies and can never alias internal slices or maps.
type Store struct {
	mu sync.RWMutex

	state      SimulationState
	history    []HistorySample
	decisions  []api.DecisionEntry
	comparison *api.Comparison

	link          feed.Status
	droppedFrames int

	subs []chan struct{}
}

func NewStore() *Store {
	return &Store{}
}

// ApplyRaw merges one telemetry frame. Fields absent from the frame keep
// their previous values; a frame carrying a step counter also appends one
// waiting-time sample to the history ring.
func (s *Store) ApplyRaw(raw json.RawMessage) error {
	snap, err := decodeSnapshot(raw)
	if err != nil {
		s.mu.Lock()
		s.droppedFrames++
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	s.mu.Lock()
	stepped := snap.mergeInto(&s.state)
	if stepped {
		s.history = appendSample(s.history, HistorySample{
			Step:      s.state.Step,
			RLWait:    s.state.RL.WaitingTime,
			FixedWait: s.state.Fixed.WaitingTime,
		})
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store) State() SimulationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

func (s *Store) History() []HistorySample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneHistory(s.history)
}

// SetDecisions replaces the decision log wholesale, keeping at most the
// newest decisionCap entries as ordered by the backend.
func (s *Store) SetDecisions(entries []api.DecisionEntry) {
	if len(entries) > decisionCap {
		entries = entries[:decisionCap]
	}
	s.mu.Lock()
	s.decisions = cloneDecisions(entries)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Decisions() []api.DecisionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneDecisions(s.decisions)
}

func (s *Store) SetComparison(cmp *api.Comparison) {
	s.mu.Lock()
	if cmp == nil {
		s.comparison = nil
	} else {
		clone := *cmp
		s.comparison = &clone
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Comparison() *api.Comparison {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.comparison == nil {
		return nil
	}
	clone := *s.comparison
	return &clone
}

// primeMetrics seeds both metric sets from a REST snapshot taken before
// the stream delivered anything. Frames that already arrived win.
func (s *Store) primeMetrics(pair api.MetricsPair) {
	s.mu.Lock()
	fresh := s.state.Step == 0 && len(s.history) == 0
	if fresh {
		s.state.RL = pair.RL
		s.state.Fixed = pair.Fixed
	}
	s.mu.Unlock()
	if fresh {
		s.notify()
	}
}

// Reset returns the store to its boot state after a confirmed backend
// reset. The link status and drop counter describe the transport, not the
// run, so they survive.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = SimulationState{}
	s.history = nil
	s.decisions = nil
	s.comparison = nil
	s.mu.Unlock()
	s.notify()
}

// SetRunning flips the run flag after a confirmed start or stop, keeping
// the UI honest between the command ack and the next telemetry frame.
func (s *Store) SetRunning(running bool) {
	s.mu.Lock()
	changed := s.state.Running != running
	s.state.Running = running
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Store) SetLink(status feed.Status) {
	s.mu.Lock()
	changed := s.link != status
	s.link = status
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Store) Link() feed.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.link
}

func (s *Store) DroppedFrames() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.droppedFrames
}

// Subscribe returns a channel that receives a coalesced signal after every
// store mutation. Slow readers never block writers.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
