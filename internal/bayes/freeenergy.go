package bayes

import (
	"math"
	"sync"
)

// Health labels for the prediction system.
const (
	HealthUnknown  = "unknown"
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthCritical = "critical"
)

const (
	monitorCap  = 1000
	minSamples  = 5
	scoreSpread = 500.0 // normalizes score variance onto [0, 1]
	scoreScale  = 1000.0
	goLine      = 500.0 // a score at or above this predicts success
	logLossEps  = 1e-9
)

// Observation pairs a predicted propensity score (0-1000 scale) with what
// actually happened.
type Observation struct {
	PredictedScore float64 `json:"predicted_score"`
	ActualSuccess  bool    `json:"actual_success"`
}

// Monitor keeps the most recent observations in a ring buffer and reports
// whether the system's predictions still track reality.
type Monitor struct {
	mu   sync.Mutex
	obs  []Observation
	next int
	full bool
}

func NewMonitor() *Monitor {
	return &Monitor{obs: make([]Observation, monitorCap)}
}

// Record clamps the score onto the 0-1000 scale and appends, evicting the
// oldest observation once the buffer is full.
func (m *Monitor) Record(o Observation) {
	o.PredictedScore = clamp(o.PredictedScore, 0, scoreScale)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs[m.next] = o
	m.next++
	if m.next == len(m.obs) {
		m.next = 0
		m.full = true
	}
}

// Report is the free-energy health summary.
type Report struct {
	Samples          int     `json:"samples"`
	Entropy          float64 `json:"entropy"`
	Surprise         float64 `json:"surprise"`
	FreeEnergy       float64 `json:"free_energy"`
	Brier            float64 `json:"brier"`
	LogLoss          float64 `json:"log_loss"`
	MeanAbsError     float64 `json:"mean_abs_error"`
	CalibrationError float64 `json:"calibration_error"`
	Health           string  `json:"health"`
}

// Report computes the current health. Entropy is min(1, variance of the
// predicted scores over 500^2); surprise is the fraction of observations
// where the score landed on the wrong side of 500; free energy is their sum.
// Brier, log-loss, and calibration treat score/1000 as the implied
// probability. Fewer than five observations reports unknown.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	window := m.snapshotLocked()
	m.mu.Unlock()

	n := len(window)
	if n < minSamples {
		return Report{Samples: n, Health: HealthUnknown}
	}

	var scoreSum, scoreSqSum float64
	var surprises, predictedGo, successes int
	var brierSum, logLossSum, absErrSum float64
	for _, o := range window {
		scoreSum += o.PredictedScore
		scoreSqSum += o.PredictedScore * o.PredictedScore

		outcome := 0.0
		if o.ActualSuccess {
			outcome = 1.0
			successes++
		}
		if o.PredictedScore >= goLine {
			predictedGo++
		}
		if (o.PredictedScore >= goLine) != o.ActualSuccess {
			surprises++
		}

		pHat := clamp(o.PredictedScore/scoreScale, 0, 1)
		diff := pHat - outcome
		brierSum += diff * diff
		absErrSum += math.Abs(diff)

		p := clamp(pHat, logLossEps, 1-logLossEps)
		if o.ActualSuccess {
			logLossSum += -math.Log(p)
		} else {
			logLossSum += -math.Log(1 - p)
		}
	}

	nf := float64(n)
	mean := scoreSum / nf
	variance := scoreSqSum/nf - mean*mean

	r := Report{
		Samples:          n,
		Entropy:          math.Min(1, variance/(scoreSpread*scoreSpread)),
		Surprise:         float64(surprises) / nf,
		Brier:            brierSum / nf,
		LogLoss:          logLossSum / nf,
		MeanAbsError:     absErrSum / nf,
		CalibrationError: math.Abs(float64(predictedGo)/nf - float64(successes)/nf),
	}
	r.FreeEnergy = r.Entropy + r.Surprise
	switch {
	case r.FreeEnergy < 0.35:
		r.Health = HealthHealthy
	case r.FreeEnergy < 0.7:
		r.Health = HealthDegraded
	default:
		r.Health = HealthCritical
	}
	return r
}

// snapshotLocked returns the live observations in insertion order.
func (m *Monitor) snapshotLocked() []Observation {
	if !m.full {
		out := make([]Observation, m.next)
		copy(out, m.obs[:m.next])
		return out
	}
	out := make([]Observation, 0, len(m.obs))
	out = append(out, m.obs[m.next:]...)
	out = append(out, m.obs[:m.next]...)
	return out
}
