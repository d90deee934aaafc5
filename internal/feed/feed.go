package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Status describes the supervisor's view of the telemetry link.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultBackoffMin = 500 * time.Millisecond
	defaultBackoffMax = 15 * time.Second
	maxFrameBytes     = 1 << 20
)

// SocketURL converts an http(s) base URL into the ws(s) URL of the
// telemetry stream endpoint.
func SocketURL(baseURL, path string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", baseURL, err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in base url", parsed.Scheme)
	}
	if path == "" {
		path = "/ws/simulation"
	}
	parsed.Path = path
	parsed.RawQuery = ""
	return parsed.String(), nil
}

// Supervisor maintains the telemetry websocket, reconnecting with
// exponential backoff when the link drops. Raw frames are delivered on the
// sink in arrival order; the supervisor never interprets them.
type Supervisor struct {
	socketURL   string
	dialer      *websocket.Dialer
	backoffMin  time.Duration
	backoffMax  time.Duration
	maxAttempts int
	onStatus    func(Status)
}

type Config struct {
	SocketURL  string
	BackoffMin time.Duration
	BackoffMax time.Duration
	// MaxAttempts bounds consecutive failed connection attempts; zero
	// means retry forever.
	MaxAttempts int
	// OnStatus is invoked synchronously on every link state change.
	OnStatus func(Status)
}

func NewSupervisor(cfg Config) (*Supervisor, error) {
	if strings.TrimSpace(cfg.SocketURL) == "" {
		return nil, fmt.Errorf("socket url is required")
	}
	sup := &Supervisor{
		socketURL:   cfg.SocketURL,
		dialer:      websocket.DefaultDialer,
		backoffMin:  cfg.BackoffMin,
		backoffMax:  cfg.BackoffMax,
		maxAttempts: cfg.MaxAttempts,
		onStatus:    cfg.OnStatus,
	}
	if sup.backoffMin <= 0 {
		sup.backoffMin = defaultBackoffMin
	}
	if sup.backoffMax < sup.backoffMin {
		sup.backoffMax = defaultBackoffMax
	}
	return sup, nil
}

func (s *Supervisor) setStatus(status Status) {
	if s.onStatus != nil {
		s.onStatus(status)
	}
}

// Run drives the connect/pump/reconnect loop until ctx is cancelled or the
// attempt budget is exhausted. The sink is closed before Run returns.
func (s *Supervisor) Run(ctx context.Context, sink chan<- json.RawMessage) error {
	defer close(sink)
	defer s.setStatus(StatusDisconnected)

	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.setStatus(StatusConnecting)
		conn, _, err := s.dialer.DialContext(ctx, s.socketURL, nil)
		if err != nil {
			s.setStatus(StatusDisconnected)
			attempt++
			if s.maxAttempts > 0 && attempt >= s.maxAttempts {
				return fmt.Errorf("telemetry link failed after %d attempts: %w", attempt, err)
			}
			if err := sleepCtx(ctx, backoffDelay(s.backoffMin, s.backoffMax, attempt)); err != nil {
				return err
			}
			continue
		}

		s.setStatus(StatusConnected)
		pumpErr := s.pump(ctx, conn, sink)
		s.setStatus(StatusDisconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A drop after a successful session still counts as a failed
		// attempt so a flapping backend backs off instead of spinning.
		attempt++
		if s.maxAttempts > 0 && attempt >= s.maxAttempts {
			return fmt.Errorf("telemetry link failed after %d attempts: %w", attempt, pumpErr)
		}
		if err := sleepCtx(ctx, backoffDelay(s.backoffMin, s.backoffMax, attempt)); err != nil {
			return err
		}
	}
}

// pump reads frames until the connection dies or ctx is cancelled.
func (s *Supervisor) pump(ctx context.Context, conn *websocket.Conn, sink chan<- json.RawMessage) error {
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		kind, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read telemetry frame: %w", err)
		}
		if kind != websocket.TextMessage {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sink <- json.RawMessage(frame):
		}
	}
}

// backoffDelay doubles from min up to max with +/-10% jitter. attempt
// counts from 1.
func backoffDelay(min, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := min
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if delay > max {
		delay = max
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/5+1)) - delay/10
	delay += jitter
	if delay < min {
		delay = min
	}
	if delay > max {
		delay = max
	}
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
