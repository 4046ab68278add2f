package service

import (
	"time"

	"github.com/beka-birhanu/gameloader-api/domain"
)

// UserLatency is the in-game latency tier a turn rate was selected for.
type UserLatency string

const (
	LatencyLow       UserLatency = "low"
	LatencyHigh      UserLatency = "high"
	LatencyExtraHigh UserLatency = "extraHigh"
)

// latencyTurnBuffer is how many network turns of delay each tier tolerates
// before the simulation stalls.
var latencyTurnBuffer = map[UserLatency]int{
	LatencyLow:       2,
	LatencyHigh:      3,
	LatencyExtraHigh: 4,
}

// potentialTurnRates are the turn rates eligible for dynamic selection.
// Must stay sorted low to high.
var potentialTurnRates = []int{12, 14, 16, 20, 24}

// TurnRateToMaxLatency returns the highest one-way peer latency that still
// allows smooth play at the given turn rate and latency tier.
func TurnRateToMaxLatency(turnRate int, latency UserLatency) time.Duration {
	turnDuration := time.Second / time.Duration(turnRate)
	return turnDuration * time.Duration(latencyTurnBuffer[latency])
}

// TurnRateResult is the outcome of turn-rate selection for one match.
// TurnRate is 0 and UserLatency empty when dynamic selection is disabled.
type TurnRateResult struct {
	MaxEstimatedLatency time.Duration
	TurnRate            int
	UserLatency         UserLatency
}

// SelectTurnRate picks the simulation turn rate for a set of negotiated
// routes. It is a pure function of the route latencies: the highest rate
// whose low-tier tolerance exceeds the worst observed latency wins; failing
// that, the highest rate whose high-tier tolerance does; failing that, the
// lowest defined rate at the high tier.
func SelectTurnRate(routes []*domain.NegotiatedRoute, dynamic bool) TurnRateResult {
	var maxLatency time.Duration
	for _, route := range routes {
		if route.EstimatedLatency > maxLatency {
			maxLatency = route.EstimatedLatency
		}
	}

	result := TurnRateResult{MaxEstimatedLatency: maxLatency}
	if !dynamic {
		return result
	}

	if rate, ok := bestRateFor(maxLatency, LatencyLow); ok {
		result.TurnRate = rate
		result.UserLatency = LatencyLow
		return result
	}

	result.UserLatency = LatencyHigh
	if rate, ok := bestRateFor(maxLatency, LatencyHigh); ok {
		result.TurnRate = rate
	} else {
		result.TurnRate = potentialTurnRates[0]
	}
	return result
}

// bestRateFor returns the highest candidate rate whose tolerance at the
// given tier exceeds the observed latency.
func bestRateFor(latency time.Duration, tier UserLatency) (int, bool) {
	for idx := len(potentialTurnRates) - 1; idx >= 0; idx-- {
		rate := potentialTurnRates[idx]
		if TurnRateToMaxLatency(rate, tier) > latency {
			return rate, true
		}
	}
	return 0, false
}
