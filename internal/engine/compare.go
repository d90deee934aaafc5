package engine

import "greenwave-tui/internal/api"

// EfficiencyGain is the headline percentage: how much average waiting time
// the adaptive controller shaved off the fixed-time baseline. A baseline of
// zero yields zero rather than a division blowup.
func EfficiencyGain(cmp *api.Comparison) float64 {
	if cmp == nil {
		return 0
	}
	fixed := cmp.Fixed.AvgWaitingTime
	if fixed <= 0 {
		return 0
	}
	return (fixed - cmp.RL.AvgWaitingTime) / fixed * 100
}

// RadarAxes holds normalized 0..100 scores per metric axis, where higher
// always means better regardless of the metric's natural direction.
type RadarAxes struct {
	WaitingTime float64
	QueueLength float64
	PeakWait    float64
	Throughput  float64
}

type RadarScores struct {
	RL    RadarAxes
	Fixed RadarAxes
}

// Radar derives both controllers' normalized axis scores. Scores are
// recomputed from the aggregates on every call; nothing is cached.
func Radar(cmp *api.Comparison) RadarScores {
	var out RadarScores
	if cmp == nil {
		return out
	}
	rl, fixed := cmp.RL, cmp.Fixed
	out.RL.WaitingTime, out.Fixed.WaitingTime = lowerBetterScores(rl.AvgWaitingTime, fixed.AvgWaitingTime)
	out.RL.QueueLength, out.Fixed.QueueLength = lowerBetterScores(rl.AvgQueueLength, fixed.AvgQueueLength)
	out.RL.PeakWait, out.Fixed.PeakWait = lowerBetterScores(rl.MaxWaitingTime, fixed.MaxWaitingTime)
	out.RL.Throughput, out.Fixed.Throughput = higherBetterScores(rl.TotalThroughput, fixed.TotalThroughput)
	return out
}

// lowerBetterScores normalizes a smaller-is-better metric pair onto 0..100.
// The shared scale bottoms out at 1 so all-zero inputs stay defined.
func lowerBetterScores(rl, fixed float64) (rlScore, fixedScore float64) {
	scale := maxFloat(rl, fixed, 1)
	return clampScore(100 * (1 - rl/scale)), clampScore(100 * (1 - fixed/scale))
}

// higherBetterScores normalizes a larger-is-better metric pair onto 0..100.
func higherBetterScores(rl, fixed float64) (rlScore, fixedScore float64) {
	scale := maxFloat(rl, fixed, 1)
	return clampScore(100 * rl / scale), clampScore(100 * fixed / scale)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func maxFloat(vals ...float64) float64 {
	out := vals[0]
	for _, v := range vals[1:] {
		if v > out {
			out = v
		}
	}
	return out
}
