package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

func TestMain(m *testing.M) {
	if err := log.Init(true); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestHTTPSourceFetch(t *testing.T) {
	payload := `[
		{"timestamp": "2024-01-01T10:02:00Z", "celsius": 61.5},
		{"time": "2024-01-01T10:00:00", "temp": 60.0},
		{"ts": 1704103380, "temperature": "62.5"},
		{"celsius": 55.0},
		{"timestamp": "not-a-time", "celsius": 55.0},
		{"timestamp": "2024-01-01T10:03:00Z"}
	]`

	var gotFrom, gotTo string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history" {
			http.NotFound(w, r)
			return
		}
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	from := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)

	samples, err := src.Fetch(context.Background(), from, to)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if gotFrom != from.Format(time.RFC3339) || gotTo != to.Format(time.RFC3339) {
		t.Errorf("query window = %q..%q", gotFrom, gotTo)
	}

	// Three valid readings, sorted by timestamp; malformed entries skipped.
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3: %+v", len(samples), samples)
	}
	if !samples[0].Time.Before(samples[1].Time) || !samples[1].Time.Before(samples[2].Time) {
		t.Errorf("samples not sorted: %+v", samples)
	}
	if samples[0].TemperatureC != 60.0 {
		t.Errorf("first sample = %+v, want 60.0 at 10:00", samples[0])
	}
	if samples[2].TemperatureC != 62.5 {
		t.Errorf("last sample = %+v, want the epoch-encoded 62.5", samples[2])
	}
}

func TestHTTPSourceRetriesThenSucceeds(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"timestamp": "2024-01-01T10:00:00Z", "celsius": 50.0}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	src.backoff = time.Millisecond

	samples, err := src.Fetch(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(samples) != 1 {
		t.Errorf("got %d samples, want 1", len(samples))
	}
}

func TestHTTPSourceGivesUpAfterAttempts(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	src.backoff = time.Millisecond

	_, err := src.Fetch(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

type stubSource struct {
	name    string
	samples []sessions.Observation
	err     error
	calls   int
}

func (s *stubSource) Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	s.calls++
	return s.samples, s.err
}

func (s *stubSource) Name() string { return s.name }

func TestChainFallsThrough(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	want := []sessions.Observation{{Time: t0, TemperatureC: 50.0}}

	failing := &stubSource{name: "a", err: context.DeadlineExceeded}
	empty := &stubSource{name: "b"}
	good := &stubSource{name: "c", samples: want}
	unreached := &stubSource{name: "d", samples: want}

	chain := NewChain(failing, empty, good, unreached)
	got, err := chain.Fetch(context.Background(), t0.Add(-time.Hour), t0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if failing.calls != 1 || empty.calls != 1 || good.calls != 1 {
		t.Error("every source up to the first non-empty one should be consulted")
	}
	if unreached.calls != 0 {
		t.Error("sources after the first non-empty result should not be consulted")
	}
}

func TestChainAllEmpty(t *testing.T) {
	chain := NewChain(&stubSource{name: "a"}, &stubSource{name: "b"})
	got, err := chain.Fetch(context.Background(), time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %+v, want empty", got)
	}
}
