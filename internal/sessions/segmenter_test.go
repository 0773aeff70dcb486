package sessions

import (
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

// series generates count samples at temp, one per step, starting at start.
func series(start time.Time, count int, temp float64, step time.Duration) []Observation {
	obs := make([]Observation, count)
	for i := range obs {
		obs[i] = Observation{Time: start.Add(time.Duration(i) * step), TemperatureC: temp}
	}
	return obs
}

func TestInfer(t *testing.T) {
	params := Params{ThresholdC: 45.0, MinDurationMin: 10, GapMinutes: 8}

	tests := []struct {
		name    string
		samples []Observation
		params  Params
		want    []Session
	}{
		{
			name:    "empty input yields empty output",
			samples: nil,
			params:  params,
			want:    nil,
		},
		{
			name:    "series entirely below threshold",
			samples: series(t0, 30, 30.0, time.Minute),
			params:  params,
			want:    nil,
		},
		{
			name:    "fifteen hot minutes form one session",
			samples: series(t0, 15, 60.0, time.Minute),
			params:  params,
			want: []Session{
				{Start: t0, End: t0.Add(14 * time.Minute), MaxTemperatureC: 60.0, Minutes: 14},
			},
		},
		{
			// Cold samples arriving every minute never exceed the
			// consecutive-sample gap tolerance, so a nine-minute cold run at
			// one-minute cadence keeps the session open and the two hot runs
			// merge.
			name: "densely sampled cold run within tolerance merges hot runs",
			samples: concat(
				series(t0, 6, 50.0, time.Minute),
				series(t0.Add(6*time.Minute), 9, 30.0, time.Minute),
				series(t0.Add(15*time.Minute), 12, 52.0, time.Minute),
			),
			params: params,
			want: []Session{
				{Start: t0, End: t0.Add(26 * time.Minute), MaxTemperatureC: 52.0, Minutes: 26},
			},
		},
		{
			name: "cold excursion within gap tolerance merges runs",
			samples: concat(
				series(t0, 8, 50.0, time.Minute),
				[]Observation{{Time: t0.Add(10 * time.Minute), TemperatureC: 30.0}},
				series(t0.Add(12*time.Minute), 8, 55.0, time.Minute),
			),
			params: params,
			want: []Session{
				{Start: t0, End: t0.Add(19 * time.Minute), MaxTemperatureC: 55.0, Minutes: 19},
			},
		},
		{
			// The gap rule only applies to below-threshold samples; a long
			// silence between two hot samples extends the session.
			name: "gap between hot samples never splits",
			samples: concat(
				series(t0, 12, 50.0, time.Minute),
				series(t0.Add(30*time.Minute), 13, 48.0, time.Minute),
			),
			params: params,
			want: []Session{
				{Start: t0, End: t0.Add(42 * time.Minute), MaxTemperatureC: 50.0, Minutes: 42},
			},
		},
		{
			name: "wide cold gap between runs closes the first",
			samples: concat(
				series(t0, 12, 50.0, time.Minute),
				[]Observation{{Time: t0.Add(25 * time.Minute), TemperatureC: 20.0}},
				series(t0.Add(30*time.Minute), 13, 48.0, time.Minute),
			),
			params: params,
			want: []Session{
				{Start: t0, End: t0.Add(11 * time.Minute), MaxTemperatureC: 50.0, Minutes: 11},
				{Start: t0.Add(30 * time.Minute), End: t0.Add(42 * time.Minute), MaxTemperatureC: 48.0, Minutes: 12},
			},
		},
		{
			name:    "single hot sample dropped when minimum is positive",
			samples: []Observation{{Time: t0, TemperatureC: 60.0}},
			params:  params,
			want:    nil,
		},
		{
			name:    "single hot sample kept when minimum is zero",
			samples: []Observation{{Time: t0, TemperatureC: 60.0}},
			params:  Params{ThresholdC: 45.0, MinDurationMin: 0, GapMinutes: 8},
			want: []Session{
				{Start: t0, End: t0, MaxTemperatureC: 60.0, Minutes: 0},
			},
		},
		{
			name: "leading cold sample with no predecessor never closes",
			samples: concat(
				[]Observation{{Time: t0, TemperatureC: 20.0}},
				series(t0.Add(time.Minute), 12, 50.0, time.Minute),
			),
			params: params,
			want: []Session{
				{Start: t0.Add(time.Minute), End: t0.Add(12 * time.Minute), MaxTemperatureC: 50.0, Minutes: 11},
			},
		},
		{
			name:    "sample exactly at threshold counts as hot",
			samples: series(t0, 12, 45.0, time.Minute),
			params:  params,
			want: []Session{
				{Start: t0, End: t0.Add(11 * time.Minute), MaxTemperatureC: 45.0, Minutes: 11},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Infer(tt.samples, tt.params)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Infer() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func concat(parts ...[]Observation) []Observation {
	var all []Observation
	for _, p := range parts {
		all = append(all, p...)
	}
	return all
}

func TestInferGapBoundary(t *testing.T) {
	params := Params{ThresholdC: 45.0, MinDurationMin: 0, GapMinutes: 8}

	// Cold sample arriving exactly GapMinutes after the previous sample is
	// tolerated; one second past it closes the session.
	hot := series(t0, 5, 50.0, time.Minute)

	tolerated := append(append([]Observation{}, hot...),
		Observation{Time: t0.Add(4*time.Minute + 8*time.Minute), TemperatureC: 20.0},
		Observation{Time: t0.Add(13 * time.Minute), TemperatureC: 50.0},
	)
	got := Infer(tolerated, params)
	if len(got) != 1 {
		t.Fatalf("gap of exactly the tolerance should not split: got %d sessions", len(got))
	}
	if got[0].End != t0.Add(13*time.Minute) {
		t.Errorf("merged session end = %v, want %v", got[0].End, t0.Add(13*time.Minute))
	}

	split := append(append([]Observation{}, hot...),
		Observation{Time: t0.Add(4*time.Minute + 8*time.Minute + time.Second), TemperatureC: 20.0},
		Observation{Time: t0.Add(14 * time.Minute), TemperatureC: 50.0},
	)
	got = Infer(split, params)
	if len(got) != 2 {
		t.Fatalf("gap past the tolerance should split: got %d sessions", len(got))
	}
}

func TestInferColdExcursionDoesNotTouchSession(t *testing.T) {
	params := Params{ThresholdC: 45.0, MinDurationMin: 0, GapMinutes: 8}

	samples := []Observation{
		{Time: t0, TemperatureC: 70.0},
		{Time: t0.Add(2 * time.Minute), TemperatureC: 30.0}, // tolerated noise
		{Time: t0.Add(4 * time.Minute), TemperatureC: 50.0},
	}

	got := Infer(samples, params)
	if len(got) != 1 {
		t.Fatalf("expected one session, got %d", len(got))
	}
	// The cold sample must neither extend End nor reset the running maximum.
	if got[0].MaxTemperatureC != 70.0 {
		t.Errorf("max = %v, want 70.0", got[0].MaxTemperatureC)
	}
	if got[0].End != t0.Add(4*time.Minute) {
		t.Errorf("end = %v, want %v", got[0].End, t0.Add(4*time.Minute))
	}
}

func TestInferDurationTruncation(t *testing.T) {
	params := Params{ThresholdC: 45.0, MinDurationMin: 0, GapMinutes: 8}

	samples := []Observation{
		{Time: t0, TemperatureC: 50.0},
		{Time: t0.Add(9*time.Minute + 45*time.Second), TemperatureC: 50.0},
	}

	got := Infer(samples, params)
	if len(got) != 1 {
		t.Fatalf("expected one session, got %d", len(got))
	}
	if got[0].Minutes != 9 {
		t.Errorf("minutes = %d, want 9 (truncated, not rounded)", got[0].Minutes)
	}
}

func TestInferMinDurationUsesExactSpan(t *testing.T) {
	// A 9m45s span is under a 10-minute floor even though the gap tolerance
	// that kept the session open is shorter than the span.
	params := Params{ThresholdC: 45.0, MinDurationMin: 10, GapMinutes: 8}

	samples := []Observation{
		{Time: t0, TemperatureC: 50.0},
		{Time: t0.Add(9*time.Minute + 45*time.Second), TemperatureC: 50.0},
	}

	if got := Infer(samples, params); len(got) != 0 {
		t.Errorf("expected session under the floor to be dropped, got %+v", got)
	}
}

func TestInferSortsOutOfOrderInput(t *testing.T) {
	params := Params{ThresholdC: 45.0, MinDurationMin: 10, GapMinutes: 8}

	ordered := series(t0, 15, 60.0, time.Minute)
	shuffled := []Observation{ordered[14], ordered[3], ordered[0]}
	shuffled = append(shuffled, ordered[4:14]...)
	shuffled = append(shuffled, ordered[1], ordered[2])

	want := Infer(ordered, params)
	got := Infer(shuffled, params)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("out-of-order input: got %+v, want %+v", got, want)
	}

	// The shuffled input itself must be left untouched.
	if shuffled[0] != ordered[14] {
		t.Error("Infer mutated its input slice")
	}
}

func TestInferIsPure(t *testing.T) {
	params := Params{ThresholdC: 45.0, MinDurationMin: 10, GapMinutes: 8}
	samples := concat(
		series(t0, 12, 50.0, time.Minute),
		[]Observation{{Time: t0.Add(25 * time.Minute), TemperatureC: 20.0}},
		series(t0.Add(30*time.Minute), 13, 48.0, time.Minute),
	)

	first := Infer(samples, params)
	second := Infer(samples, params)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated runs differ: %+v vs %+v", first, second)
	}

	for i := 1; i < len(first); i++ {
		if first[i].Start.Before(first[i-1].Start) {
			t.Errorf("sessions out of order: %v before %v", first[i].Start, first[i-1].Start)
		}
	}
	for _, s := range first {
		if s.MaxTemperatureC < params.ThresholdC {
			t.Errorf("session max %v below threshold %v", s.MaxTemperatureC, params.ThresholdC)
		}
		if s.Minutes < params.MinDurationMin {
			t.Errorf("session minutes %d below floor %d", s.Minutes, params.MinDurationMin)
		}
		if s.End.Before(s.Start) {
			t.Errorf("session end %v before start %v", s.End, s.Start)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{5, "5m"},
		{59, "59m"},
		{60, "1h"},
		{75, "1h 15m"},
		{120, "2h"},
		{143, "2h 23m"},
	}

	for _, tt := range tests {
		if got := FormatMinutes(tt.minutes); got != tt.want {
			t.Errorf("FormatMinutes(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
