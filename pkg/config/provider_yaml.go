package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from a YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	// Load into a temporary struct with YAML tags, then convert to the
	// internal format.
	var yamlConfig struct {
		Bot struct {
			Token          string `yaml:"token"`
			ChatID         int64  `yaml:"chat_id"`
			Timezone       string `yaml:"timezone"`
			MorningTime    string `yaml:"morning_time"`
			EveningTime    string `yaml:"evening_time"`
			DisableMorning bool   `yaml:"disable_morning"`
			DisableEvening bool   `yaml:"disable_evening"`
		} `yaml:"bot"`
		Weather struct {
			Latitude    float64 `yaml:"latitude"`
			Longitude   float64 `yaml:"longitude"`
			APIEndpoint string  `yaml:"api_endpoint"`
		} `yaml:"weather"`
		History struct {
			SQLitePath   string `yaml:"sqlite_path"`
			TimescaleDSN string `yaml:"timescale_dsn"`
			BaseURL      string `yaml:"base_url"`
		} `yaml:"history"`
		Sessions struct {
			ThresholdC     float64 `yaml:"threshold_c"`
			MinDurationMin int     `yaml:"min_duration_min"`
			GapMinutes     int     `yaml:"gap_minutes"`
		} `yaml:"sessions"`
		State struct {
			Path string `yaml:"path"`
		} `yaml:"state"`
		Management struct {
			Cert         string   `yaml:"cert"`
			Key          string   `yaml:"key"`
			Port         int      `yaml:"port"`
			ListenAddr   string   `yaml:"listen_addr"`
			AuthToken    string   `yaml:"auth_token"`
			EnvFile      string   `yaml:"env_file"`
			ServiceUnits []string `yaml:"service_units"`
		} `yaml:"management"`
	}

	err = yaml.Unmarshal(cfgFile, &yamlConfig)
	if err != nil {
		return nil, err
	}

	config := &ConfigData{
		Bot: BotData{
			Token:          yamlConfig.Bot.Token,
			ChatID:         yamlConfig.Bot.ChatID,
			Timezone:       yamlConfig.Bot.Timezone,
			MorningTime:    yamlConfig.Bot.MorningTime,
			EveningTime:    yamlConfig.Bot.EveningTime,
			DisableMorning: yamlConfig.Bot.DisableMorning,
			DisableEvening: yamlConfig.Bot.DisableEvening,
		},
		Weather: WeatherData{
			Latitude:    yamlConfig.Weather.Latitude,
			Longitude:   yamlConfig.Weather.Longitude,
			APIEndpoint: yamlConfig.Weather.APIEndpoint,
		},
		History: HistoryData{
			SQLitePath:   yamlConfig.History.SQLitePath,
			TimescaleDSN: yamlConfig.History.TimescaleDSN,
			BaseURL:      yamlConfig.History.BaseURL,
		},
		Sessions: SessionsData{
			ThresholdC:     yamlConfig.Sessions.ThresholdC,
			MinDurationMin: yamlConfig.Sessions.MinDurationMin,
			GapMinutes:     yamlConfig.Sessions.GapMinutes,
		},
		State: StateData{
			Path: yamlConfig.State.Path,
		},
		Management: ManagementData{
			Cert:         yamlConfig.Management.Cert,
			Key:          yamlConfig.Management.Key,
			Port:         yamlConfig.Management.Port,
			ListenAddr:   yamlConfig.Management.ListenAddr,
			AuthToken:    yamlConfig.Management.AuthToken,
			EnvFile:      yamlConfig.Management.EnvFile,
			ServiceUnits: yamlConfig.Management.ServiceUnits,
		},
	}

	config.ApplyDefaults()
	return config, nil
}

// IsReadOnly returns true: YAML configuration is not writable at runtime
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML providers
func (y *YAMLProvider) Close() error {
	return nil
}
