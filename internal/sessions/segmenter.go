package sessions

import (
	"sort"
	"time"
)

// accumulator holds the open session while the detector is in the
// accumulating state.
type accumulator struct {
	start time.Time
	end   time.Time
	maxC  float64
}

// detector is the two-state machine: idle, or accumulating an open session.
type detector struct {
	accumulating bool
	acc          accumulator
}

func (d *detector) open(o Observation) {
	d.accumulating = true
	d.acc = accumulator{start: o.Time, end: o.Time, maxC: o.TemperatureC}
}

func (d *detector) extend(o Observation) {
	d.acc.end = o.Time
	if o.TemperatureC > d.acc.maxC {
		d.acc.maxC = o.TemperatureC
	}
}

// finalize closes the open session and returns it if it satisfies the
// minimum-duration filter. Sessions below the floor are silently dropped.
func (d *detector) finalize(minDurationMin int) (Session, bool) {
	d.accumulating = false

	minutes := d.acc.end.Sub(d.acc.start).Minutes()
	if minutes < float64(minDurationMin) {
		return Session{}, false
	}
	return Session{
		Start:           d.acc.start,
		End:             d.acc.end,
		MaxTemperatureC: d.acc.maxC,
		Minutes:         int(minutes),
	}, true
}

// Infer segments samples into sessions.
//
// A session opens on the first sample at or above the threshold and is
// extended by every subsequent hot sample. A below-threshold sample closes
// the open session only when the elapsed time since the previous raw sample
// exceeds the gap tolerance; shorter cold excursions are tolerated as noise
// and neither extend the session nor reduce its running maximum. A session
// still open when input ends is finalized the same way. Only sessions lasting
// at least p.MinDurationMin minutes are returned, in chronological order.
//
// Samples are expected in non-decreasing timestamp order; out-of-order input
// is sorted into a copy first, since gap decisions are meaningless otherwise.
// The function is pure and safe for concurrent callers.
func Infer(samples []Observation, p Params) []Session {
	samples = chronological(samples)

	var out []Session
	var det detector
	var prev time.Time
	var havePrev bool

	for _, s := range samples {
		if s.TemperatureC >= p.ThresholdC {
			if det.accumulating {
				det.extend(s)
			} else {
				det.open(s)
			}
		} else if det.accumulating {
			// No previous sample means no delta to compare: the gap rule
			// cannot trigger on the first sample of the series.
			if havePrev && s.Time.Sub(prev) > time.Duration(p.GapMinutes)*time.Minute {
				if sess, ok := det.finalize(p.MinDurationMin); ok {
					out = append(out, sess)
				}
			}
		}
		prev = s.Time
		havePrev = true
	}

	if det.accumulating {
		if sess, ok := det.finalize(p.MinDurationMin); ok {
			out = append(out, sess)
		}
	}

	return out
}

// chronological returns samples ordered by timestamp, copying only when the
// input is out of order.
func chronological(samples []Observation) []Observation {
	sorted := sort.SliceIsSorted(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
	if sorted {
		return samples
	}
	clone := make([]Observation, len(samples))
	copy(clone, samples)
	sort.SliceStable(clone, func(i, j int) bool {
		return clone[i].Time.Before(clone[j].Time)
	})
	return clone
}
