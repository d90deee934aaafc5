package engine

import (
	"encoding/json"

	"greenwave-tui/internal/api"
)

// SimulationState is the engine's merged view of the live run. Both
// controllers advance in lockstep on the backend, so one step counter
// covers the pair.
type SimulationState struct {
	Step    int                 `json:"step"`
	Running bool                `json:"is_running"`
	RL      api.MetricSet       `json:"rl_metrics"`
	Fixed   api.MetricSet       `json:"fixed_metrics"`
	Agents  []api.AgentSnapshot `json:"agents,omitempty"`
}

// partialSnapshot mirrors a telemetry frame with every field optional.
// Absent fields stay nil and leave the merged state untouched. The run
// flag appears under two spellings across backend builds; both decode.
type partialSnapshot struct {
	Step         *int                `json:"step"`
	Running      *bool               `json:"is_running"`
	RunningCamel *bool               `json:"isRunning"`
	RL           *api.MetricSet      `json:"rl_metrics"`
	Fixed        *api.MetricSet      `json:"fixed_metrics"`
	Agents       []api.AgentSnapshot `json:"rl_details"`
}

func decodeSnapshot(raw json.RawMessage) (*partialSnapshot, error) {
	var snap partialSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (p *partialSnapshot) runningFlag() *bool {
	if p.Running != nil {
		return p.Running
	}
	return p.RunningCamel
}

// mergeInto applies the snapshot's present fields onto state and reports
// whether the step counter itself arrived in this frame.
func (p *partialSnapshot) mergeInto(state *SimulationState) bool {
	if p.Step != nil {
		state.Step = *p.Step
	}
	if flag := p.runningFlag(); flag != nil {
		state.Running = *flag
	}
	if p.RL != nil {
		state.RL = *p.RL
	}
	if p.Fixed != nil {
		state.Fixed = *p.Fixed
	}
	if p.Agents != nil {
		state.Agents = cloneAgents(p.Agents)
	}
	return p.Step != nil
}

func cloneAgents(agents []api.AgentSnapshot) []api.AgentSnapshot {
	if agents == nil {
		return nil
	}
	out := make([]api.AgentSnapshot, len(agents))
	for i, agent := range agents {
		out[i] = agent
		if agent.LaneQueues != nil {
			lanes := make(map[string]int, len(agent.LaneQueues))
			for lane, count := range agent.LaneQueues {
				lanes[lane] = count
			}
			out[i].LaneQueues = lanes
		}
	}
	return out
}

func cloneState(state SimulationState) SimulationState {
	out := state
	out.Agents = cloneAgents(state.Agents)
	return out
}

func cloneDecisions(entries []api.DecisionEntry) []api.DecisionEntry {
	if entries == nil {
		return nil
	}
	out := make([]api.DecisionEntry, len(entries))
	copy(out, entries)
	return out
}
