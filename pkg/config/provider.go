// Package config defines the service configuration model and its providers.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Configuration management
	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Bot        BotData        `json:"bot"`
	Weather    WeatherData    `json:"weather"`
	History    HistoryData    `json:"history"`
	Sessions   SessionsData   `json:"sessions"`
	State      StateData      `json:"state"`
	Management ManagementData `json:"management,omitempty"`
}

// BotData holds the Telegram bot configuration
type BotData struct {
	Token          string `json:"token"`
	ChatID         int64  `json:"chat_id,omitempty"`
	Timezone       string `json:"timezone,omitempty"`
	MorningTime    string `json:"morning_time,omitempty"`
	EveningTime    string `json:"evening_time,omitempty"`
	DisableMorning bool   `json:"disable_morning,omitempty"`
	DisableEvening bool   `json:"disable_evening,omitempty"`
}

// WeatherData holds the forecast provider configuration
type WeatherData struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	APIEndpoint string  `json:"api_endpoint,omitempty"`
}

// HistoryData holds the temperature history source configuration.
// Sources are tried in order: SQLite, TimescaleDB, HTTP.
type HistoryData struct {
	SQLitePath   string `json:"sqlite_path,omitempty"`
	TimescaleDSN string `json:"timescale_dsn,omitempty"`
	BaseURL      string `json:"base_url,omitempty"`
}

// SessionsData holds the three session-detection knobs
type SessionsData struct {
	ThresholdC     float64 `json:"threshold_c"`
	MinDurationMin int     `json:"min_duration_min"`
	GapMinutes     int     `json:"gap_minutes"`
}

// StateData holds the local state store configuration
type StateData struct {
	Path string `json:"path"`
}

// ManagementData holds the management API configuration
type ManagementData struct {
	Cert         string   `json:"cert,omitempty"`
	Key          string   `json:"key,omitempty"`
	Port         int      `json:"port,omitempty"`
	ListenAddr   string   `json:"listen_addr,omitempty"`
	AuthToken    string   `json:"auth_token,omitempty"`
	EnvFile      string   `json:"env_file,omitempty"`
	ServiceUnits []string `json:"service_units,omitempty"`
}

// ApplyDefaults fills unset fields with the deployment defaults.
func (c *ConfigData) ApplyDefaults() {
	if c.Bot.Timezone == "" {
		c.Bot.Timezone = "Asia/Jerusalem"
	}
	if c.Bot.MorningTime == "" {
		c.Bot.MorningTime = "09:00"
	}
	if c.Bot.EveningTime == "" {
		c.Bot.EveningTime = "21:00"
	}
	if c.Weather.Latitude == 0 && c.Weather.Longitude == 0 {
		// Tel Aviv
		c.Weather.Latitude = 32.0853
		c.Weather.Longitude = 34.7818
	}
	defaults := sessions.DefaultParams()
	if c.Sessions.ThresholdC == 0 {
		c.Sessions.ThresholdC = defaults.ThresholdC
	}
	if c.Sessions.MinDurationMin == 0 {
		c.Sessions.MinDurationMin = defaults.MinDurationMin
	}
	if c.Sessions.GapMinutes == 0 {
		c.Sessions.GapMinutes = defaults.GapMinutes
	}
	if c.State.Path == "" {
		c.State.Path = "state.db"
	}
}

// Validate reports configuration errors that would prevent startup.
func (c *ConfigData) Validate() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot: token is required (TELEGRAM_BOT_TOKEN)")
	}
	if _, _, err := ParseHHMM(c.Bot.MorningTime); err != nil {
		return fmt.Errorf("bot: invalid morning_time: %w", err)
	}
	if _, _, err := ParseHHMM(c.Bot.EveningTime); err != nil {
		return fmt.Errorf("bot: invalid evening_time: %w", err)
	}
	if c.Sessions.MinDurationMin < 0 {
		return fmt.Errorf("sessions: min_duration_min must be non-negative")
	}
	if c.Sessions.GapMinutes < 0 {
		return fmt.Errorf("sessions: gap_minutes must be non-negative")
	}
	return nil
}

// ParseHHMM parses a wall-clock time of day in "HH:MM" form.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%q is not in HH:MM form", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not in HH:MM form", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%q is not in HH:MM form", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%q is out of range", s)
	}
	return hour, minute, nil
}
