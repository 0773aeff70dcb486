package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names understood by the env provider. These match the
// original Raspberry Pi deployment so an existing .env keeps working.
const (
	EnvBotToken       = "TELEGRAM_BOT_TOKEN"
	EnvChatID         = "TELEGRAM_CHAT_ID"
	EnvTimezone       = "TZ"
	EnvLatitude       = "LAT"
	EnvLongitude      = "LON"
	EnvWeatherAPI     = "WEATHER_API_ENDPOINT"
	EnvSQLitePath     = "SAUNA_SQLITE_PATH"
	EnvBaseURL        = "SAUNA_BASE_URL"
	EnvTimescaleDSN   = "SAUNA_TIMESCALE_DSN"
	EnvThresholdC     = "SAUNA_TEMP_THRESHOLD_C"
	EnvMinDuration    = "SAUNA_MIN_DURATION_MIN"
	EnvGapMinutes     = "SAUNA_GAP_MINUTES"
	EnvStatePath      = "STATE_DB_PATH"
	EnvMorningTime    = "MORNING_TIME"
	EnvEveningTime    = "EVENING_TIME"
	EnvDisableMorning = "DISABLE_MORNING"
	EnvDisableEvening = "DISABLE_EVENING"
	EnvMgmtListenAddr = "MGMT_LISTEN_ADDR"
	EnvMgmtPort       = "MGMT_PORT"
	EnvMgmtAuthToken  = "MGMT_AUTH_TOKEN"
	EnvMgmtEnvFile    = "MGMT_ENV_FILE"
	EnvMgmtUnits      = "MGMT_SERVICE_UNITS"
)

// EnvProvider implements ConfigProvider on top of a .env file plus the
// process environment, with the environment taking precedence.
type EnvProvider struct {
	filename string
}

// NewEnvProvider creates a provider reading the given .env file. An empty
// filename means process environment only.
func NewEnvProvider(filename string) *EnvProvider {
	return &EnvProvider{filename: filename}
}

// LoadConfig assembles configuration from the .env file and environment.
func (e *EnvProvider) LoadConfig() (*ConfigData, error) {
	vars := map[string]string{}
	if e.filename != "" {
		fileVars, err := godotenv.Read(e.filename)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", e.filename, err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}

	get := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(vars[key])
	}

	config := &ConfigData{
		Bot: BotData{
			Token:          get(EnvBotToken),
			Timezone:       get(EnvTimezone),
			MorningTime:    get(EnvMorningTime),
			EveningTime:    get(EnvEveningTime),
			DisableMorning: parseBool(get(EnvDisableMorning)),
			DisableEvening: parseBool(get(EnvDisableEvening)),
		},
		Weather: WeatherData{
			APIEndpoint: get(EnvWeatherAPI),
		},
		History: HistoryData{
			SQLitePath:   get(EnvSQLitePath),
			TimescaleDSN: get(EnvTimescaleDSN),
			BaseURL:      strings.TrimRight(get(EnvBaseURL), "/"),
		},
		State: StateData{
			Path: get(EnvStatePath),
		},
		Management: ManagementData{
			ListenAddr: get(EnvMgmtListenAddr),
			AuthToken:  get(EnvMgmtAuthToken),
			EnvFile:    get(EnvMgmtEnvFile),
		},
	}

	if v := get(EnvChatID); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvChatID, err)
		}
		config.Bot.ChatID = id
	}
	if v := get(EnvLatitude); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLatitude, err)
		}
		config.Weather.Latitude = lat
	}
	if v := get(EnvLongitude); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvLongitude, err)
		}
		config.Weather.Longitude = lon
	}
	if v := get(EnvThresholdC); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvThresholdC, err)
		}
		config.Sessions.ThresholdC = threshold
	}
	if v := get(EnvMinDuration); v != "" {
		minDur, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMinDuration, err)
		}
		config.Sessions.MinDurationMin = minDur
	}
	if v := get(EnvGapMinutes); v != "" {
		gap, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvGapMinutes, err)
		}
		config.Sessions.GapMinutes = gap
	}
	if v := get(EnvMgmtPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMgmtPort, err)
		}
		config.Management.Port = port
	}
	if v := get(EnvMgmtUnits); v != "" {
		for _, unit := range strings.Split(v, ",") {
			if unit = strings.TrimSpace(unit); unit != "" {
				config.Management.ServiceUnits = append(config.Management.ServiceUnits, unit)
			}
		}
	}

	// The management panel edits the same file it was configured from unless
	// told otherwise.
	if config.Management.EnvFile == "" {
		config.Management.EnvFile = e.filename
	}

	config.ApplyDefaults()
	return config, nil
}

// IsReadOnly returns false: the backing .env file can be rewritten through
// the management API.
func (e *EnvProvider) IsReadOnly() bool {
	return false
}

// Close is a no-op for env providers
func (e *EnvProvider) Close() error {
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
