package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

// maxHistoryRows caps how many items a single fetch will accept from the
// remote endpoint.
const maxHistoryRows = 10000

// HTTPSource fetches samples from a remote collector exposing
// GET {base}/history?from=ISO&to=ISO returning a JSON array of readings.
// Field names vary across collector versions, so several spellings are
// accepted and malformed entries are skipped.
type HTTPSource struct {
	baseURL  string
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// NewHTTPSource creates an HTTP history source with bounded retry.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
		attempts: 3,
		backoff:  time.Second,
	}
}

// Fetch implements Source.
func (h *HTTPSource) Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	v := url.Values{}
	v.Set("from", from.Format(time.RFC3339))
	v.Set("to", to.Format(time.RFC3339))
	endpoint := h.baseURL + "/history?" + v.Encode()

	var lastErr error
	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: backoff, 2*backoff, ...
			wait := h.backoff << (attempt - 1)
			log.Warnf("HTTP history error (attempt %d/%d): %v, retrying in %v",
				attempt, h.attempts, lastErr, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		samples, err := h.fetchOnce(ctx, endpoint)
		if err == nil {
			return samples, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("HTTP history failed after %d attempts: %w", h.attempts, lastErr)
}

func (h *HTTPSource) fetchOnce(ctx context.Context, endpoint string) ([]sessions.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating history request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history endpoint returned %s", resp.Status)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("unexpected history payload: %w", err)
	}

	var samples []sessions.Observation
	for i, item := range items {
		if i >= maxHistoryRows {
			log.Warnf("HTTP history truncated at %d items", maxHistoryRows)
			break
		}
		obs, ok := parseHistoryItem(item)
		if !ok {
			continue
		}
		samples = append(samples, obs)
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
	return samples, nil
}

// Name implements Source.
func (h *HTTPSource) Name() string {
	return "http:" + h.baseURL
}

// parseHistoryItem coerces one JSON object into an observation, tolerating
// the field spellings and timestamp encodings seen across collector builds.
func parseHistoryItem(item map[string]any) (sessions.Observation, bool) {
	var obs sessions.Observation

	rawTime, ok := firstKey(item, "timestamp", "time", "ts")
	if !ok {
		return obs, false
	}
	rawTemp, ok := firstKey(item, "celsius", "temp", "temperature")
	if !ok {
		return obs, false
	}

	switch tv := rawTime.(type) {
	case string:
		t, err := parseTimestamp(tv)
		if err != nil {
			return obs, false
		}
		obs.Time = t
	case float64:
		sec := int64(tv)
		nsec := int64((tv - float64(sec)) * float64(time.Second))
		obs.Time = time.Unix(sec, nsec)
	default:
		return obs, false
	}

	switch temp := rawTemp.(type) {
	case float64:
		obs.TemperatureC = temp
	case string:
		f, err := strconv.ParseFloat(temp, 64)
		if err != nil {
			return obs, false
		}
		obs.TemperatureC = f
	default:
		return obs, false
	}

	return obs, true
}

func firstKey(item map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := item[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
