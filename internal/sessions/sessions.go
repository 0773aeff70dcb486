// Package sessions infers discrete sauna sessions from an irregularly-sampled
// temperature series.
package sessions

import "time"

// Observation is a single timestamped temperature reading.
type Observation struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperature_c"`
}

// Session is a contiguous, gap-tolerant interval during which readings met or
// exceeded the threshold. Start and End are the timestamps of the first and
// last qualifying samples; Minutes is the whole-minute span between them,
// truncated toward zero.
type Session struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	MaxTemperatureC float64   `json:"max_temperature_c"`
	Minutes         int       `json:"duration_minutes"`
}

// Params are the three detection knobs, passed per invocation.
type Params struct {
	// ThresholdC is the temperature at or above which a sample counts as hot.
	ThresholdC float64
	// MinDurationMin drops any finalized session shorter than this many minutes.
	MinDurationMin int
	// GapMinutes is the maximum elapsed time between consecutive raw samples,
	// while below threshold, that is tolerated without closing an open session.
	GapMinutes int
}

// DefaultParams match the sensor deployment this service was built around.
func DefaultParams() Params {
	return Params{
		ThresholdC:     45.0,
		MinDurationMin: 10,
		GapMinutes:     8,
	}
}
