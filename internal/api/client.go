package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoComparison is returned while the backend has no completed episode
// data to compare yet (it answers 404 until both controllers have reported).
var ErrNoComparison = errors.New("comparison data not available yet")

type apiError struct {
	Detail string `json:"detail"`
}

type commandResponse struct {
	Status string `json:"status"`
}

// MetricSet is one controller's instantaneous metric triple as it appears
// on the wire, both in stream snapshots and in the latest-metrics endpoint.
type MetricSet struct {
	WaitingTime float64 `json:"waiting_time"`
	QueueLength float64 `json:"queue_length"`
	Throughput  float64 `json:"throughput"`
}

// AgentSnapshot is one traffic-light agent's state inside a stream snapshot.
type AgentSnapshot struct {
	TLSID           string         `json:"tls_id"`
	CurrentPhase    int            `json:"current_phase"`
	QueueLength     int            `json:"queue_length"`
	TimeSinceChange float64        `json:"time_since_change"`
	Emergency       bool           `json:"emergency"`
	LaneQueues      map[string]int `json:"lane_queues,omitempty"`
}

type Scenario struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Code        string   `json:"code"`
	Complexity  string   `json:"complexity"`
	Agents      string   `json:"agents"`
	Description string   `json:"description"`
	Badge       string   `json:"badge"`
	Features    []string `json:"features"`
}

type DecisionKind string

const (
	KindDecision          DecisionKind = "decision"
	KindEmergency         DecisionKind = "emergency"
	KindEmergencyMaintain DecisionKind = "emergency_maintain"
	KindDetection         DecisionKind = "detection"
)

// DecisionEntry is one narrative record from the adaptive controller's
// decision log, newest-first as delivered by the backend.
type DecisionEntry struct {
	Step        int          `json:"step"`
	TLSID       string       `json:"tls_id"`
	Action      int          `json:"action"`
	WaitingTime float64      `json:"waiting_time"`
	QueueLength int          `json:"queue_length"`
	Kind        DecisionKind `json:"kind"`
	Message     string       `json:"message,omitempty"`
	VehicleID   string       `json:"vehicle_id,omitempty"`
}

type AggregateStats struct {
	AvgWaitingTime  float64 `json:"avg_waiting_time"`
	AvgQueueLength  float64 `json:"avg_queue_length"`
	MaxWaitingTime  float64 `json:"max_waiting_time"`
	MaxQueueLength  float64 `json:"max_queue_length"`
	TotalThroughput float64 `json:"total_throughput"`
}

type Improvement struct {
	WaitingTimeReduction float64 `json:"waiting_time_reduction"`
	QueueLengthReduction float64 `json:"queue_length_reduction"`
	ThroughputIncrease   float64 `json:"throughput_increase"`
}

type TimeSeries struct {
	RLWaiting    []float64 `json:"rl_waiting"`
	FixedWaiting []float64 `json:"fixed_waiting"`
	RLQueue      []float64 `json:"rl_queue"`
	FixedQueue   []float64 `json:"fixed_queue"`
}

// Comparison is the backend's aggregate comparison summary between the
// adaptive and fixed-time controllers. Replaced wholesale on each poll.
type Comparison struct {
	RL          AggregateStats `json:"rl"`
	Fixed       AggregateStats `json:"fixed"`
	Improvement Improvement    `json:"improvement"`
	Series      TimeSeries     `json:"time_series"`
}

// MetricsPair is the latest instantaneous metric pair for both controllers.
type MetricsPair struct {
	RL    MetricSet `json:"rl"`
	Fixed MetricSet `json:"fixed"`
}

// InitConfig is the payload for the simulation initialize command.
type InitConfig struct {
	Scenario string `json:"scenario"`
	MaxSteps int    `json:"max_steps"`
	NCars    int    `json:"n_cars"`
	GUI      bool   `json:"gui"`
	Seed     int    `json:"seed"`
}

// DefaultInitConfig returns the backend's documented launch defaults for a
// scenario.
func DefaultInitConfig(scenario string) InitConfig {
	return InitConfig{
		Scenario: scenario,
		MaxSteps: 5400,
		NCars:    1000,
		GUI:      false,
		Seed:     42,
	}
}

// CommandError reports a command the backend rejected or failed to process.
// Transport and decode failures are returned as plain wrapped errors instead.
type CommandError struct {
	Op         string
	StatusCode int
	Reason     string
}

func (e *CommandError) Error() string {
	reason := strings.TrimSpace(e.Reason)
	if reason == "" {
		return fmt.Sprintf("%s command failed with status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s command rejected: %s", e.Op, reason)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url %q: %w", trimmed, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("backend base url must use http or https, got %q", trimmed)
	}
	return &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request payload: %w", err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		blob, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(blob, &apiErr) == nil && strings.TrimSpace(apiErr.Detail) != "" {
			return fmt.Errorf("api %s %s: %s", method, path, apiErr.Detail)
		}
		return fmt.Errorf("api %s %s failed with status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doCommand posts a state-changing command. Every submission carries a fresh
// request id so retries are distinguishable in backend logs; backend
// rejections come back as *CommandError.
func (c *Client) doCommand(ctx context.Context, op, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		blob, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", op, err)
		}
		body = bytes.NewReader(blob)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", "req_"+uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		blob, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		reason := ""
		if json.Unmarshal(blob, &apiErr) == nil {
			reason = strings.TrimSpace(apiErr.Detail)
		}
		return &CommandError{Op: op, StatusCode: resp.StatusCode, Reason: reason}
	}

	var confirm commandResponse
	if err := json.NewDecoder(resp.Body).Decode(&confirm); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	if strings.TrimSpace(confirm.Status) == "" {
		return fmt.Errorf("unexpected %s response: missing status", op)
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Scenarios(ctx context.Context) ([]Scenario, error) {
	var scenarios []Scenario
	if err := c.doJSON(ctx, http.MethodGet, "/api/scenarios/list", nil, &scenarios); err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (c *Client) ScenarioByID(ctx context.Context, id string) (*Scenario, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("scenario id is required")
	}
	var scenario Scenario
	path := "/api/scenarios/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (c *Client) Decisions(ctx context.Context, limit int) ([]DecisionEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	var entries []DecisionEntry
	path := "/api/simulation/decisions?" + query.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) Comparison(ctx context.Context) (*Comparison, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/analytics/comparison", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrNoComparison
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("comparison endpoint returned %d", resp.StatusCode)
	}

	var cmp Comparison
	if err := json.NewDecoder(resp.Body).Decode(&cmp); err != nil {
		return nil, fmt.Errorf("decode comparison: %w", err)
	}
	return &cmp, nil
}

func (c *Client) LatestMetrics(ctx context.Context) (*MetricsPair, error) {
	var pair MetricsPair
	if err := c.doJSON(ctx, http.MethodGet, "/api/analytics/metrics", nil, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (c *Client) Initialize(ctx context.Context, cfg InitConfig) error {
	if strings.TrimSpace(cfg.Scenario) == "" {
		return fmt.Errorf("scenario is required")
	}
	return c.doCommand(ctx, "initialize", "/api/simulation/initialize", cfg)
}

func (c *Client) StartSimulation(ctx context.Context) error {
	return c.doCommand(ctx, "start", "/api/simulation/start", nil)
}

func (c *Client) StopSimulation(ctx context.Context) error {
	return c.doCommand(ctx, "stop", "/api/simulation/stop", nil)
}

func (c *Client) ResetSimulation(ctx context.Context) error {
	return c.doCommand(ctx, "reset", "/api/simulation/reset", nil)
}
