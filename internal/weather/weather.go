// Package weather provides integration with the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultEndpoint is the public Open-Meteo API.
const DefaultEndpoint = "https://api.open-meteo.com"

// Client fetches forecasts for a fixed location.
type Client struct {
	endpoint string
	timezone string
	client   *http.Client
}

// NewClient creates a forecast client. An empty endpoint selects the public
// API; timezone is passed through so daily buckets align with the bot's day.
func NewClient(endpoint, timezone string) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		timezone: timezone,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Forecast is the subset of the Open-Meteo response the bot uses.
type Forecast struct {
	Daily  ForecastDaily  `json:"daily"`
	Hourly ForecastHourly `json:"hourly"`
}

type ForecastDaily struct {
	Time            []string  `json:"time"`
	TemperatureMaxC []float64 `json:"temperature_2m_max"`
	TemperatureMinC []float64 `json:"temperature_2m_min"`
}

type ForecastHourly struct {
	Time          []string  `json:"time"`
	TemperatureC  []float64 `json:"temperature_2m"`
	Precipitation []float64 `json:"precipitation"`
	WeatherCode   []int     `json:"weather_code"`
}

// Fetch retrieves today's forecast for the given coordinates.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*Forecast, error) {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	v.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	v.Set("hourly", "temperature_2m,precipitation,weather_code")
	v.Set("daily", "temperature_2m_max,temperature_2m_min")
	if c.timezone != "" {
		v.Set("timezone", c.timezone)
	} else {
		v.Set("timezone", "auto")
	}

	endpoint := c.endpoint + "/v1/forecast?" + v.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating forecast request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast endpoint returned %s", resp.Status)
	}

	var forecast Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decoding forecast response: %w", err)
	}
	return &forecast, nil
}

// Summary renders today's high/low line for the daily digest. A nil or
// incomplete forecast degrades to an unavailability note rather than erroring.
func (f *Forecast) Summary() string {
	if f == nil || len(f.Daily.TemperatureMaxC) == 0 || len(f.Daily.TemperatureMinC) == 0 {
		return "forecast unavailable right now"
	}
	max := math.Round(f.Daily.TemperatureMaxC[0])
	min := math.Round(f.Daily.TemperatureMinC[0])
	return fmt.Sprintf("today: max %.0f°C · min %.0f°C", max, min)
}
