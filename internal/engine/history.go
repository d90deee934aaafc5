package engine

// HistorySample is one per-step waiting-time pair kept for the trend chart.
type HistorySample struct {
	Step      int     `json:"step"`
	RLWait    float64 `json:"rl_wait"`
	FixedWait float64 `json:"fixed_wait"`
}

const historyCap = 50

// appendSample keeps the newest historyCap samples, oldest evicted first.
func appendSample(history []HistorySample, sample HistorySample) []HistorySample {
	history = append(history, sample)
	if len(history) > historyCap {
		history = history[len(history)-historyCap:]
	}
	return history
}

func cloneHistory(history []HistorySample) []HistorySample {
	if history == nil {
		return nil
	}
	out := make([]HistorySample, len(history))
	copy(out, history)
	return out
}
