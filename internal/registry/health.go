package registry

import "time"

// staleWindow is the span over which health score decays toward its floor.
const staleWindow = 60 * time.Minute

// staleFloor is the minimum staleness multiplier, reached at staleWindow
// and held thereafter rather than continuing to decay to zero.
const staleFloor = 0.2

func baselineHealth(status Status) float64 {
	switch status {
	case StatusWorking, StatusCompleted:
		return 1.0
	case StatusStarted:
		return 0.8
	case StatusUnknown:
		return 0.5
	case StatusBlocked:
		return 0.3
	case StatusError:
		return 0.1
	case StatusTerminated:
		return 0.0
	default:
		return 0.5
	}
}

// healthScore computes the unitless [0,1] health score: a per-status
// baseline, decayed linearly toward staleFloor over staleWindow based on
// how long it's been since lastUpdate.
func healthScore(status Status, lastUpdate, now time.Time) float64 {
	baseline := baselineHealth(status)

	elapsed := now.Sub(lastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}

	staleness := 1.0
	if elapsed > 0 {
		fraction := float64(elapsed) / float64(staleWindow)
		if fraction > 1.0 {
			fraction = 1.0
		}
		staleness = 1.0 - fraction*(1.0-staleFloor)
	}

	score := baseline * staleness
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
