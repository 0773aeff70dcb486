package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

// SaunaReading is one row of the sauna_readings hypertable.
type SaunaReading struct {
	Time         time.Time `gorm:"column:time"`
	TemperatureC float64   `gorm:"column:temperature_c"`
}

// TableName implements the Tabler interface for the SaunaReading struct
func (SaunaReading) TableName() string {
	return "sauna_readings"
}

// TimescaleSource reads sauna readings from a TimescaleDB hypertable.
type TimescaleSource struct {
	db *gorm.DB
}

// NewTimescaleSource connects to TimescaleDB with the standard GORM
// configuration.
func NewTimescaleSource(dsn string) (*TimescaleSource, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}
	log.Info("TimescaleDB connection successful")

	return &TimescaleSource{db: db}, nil
}

// Fetch implements Source.
func (t *TimescaleSource) Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	var readings []SaunaReading
	err := t.db.WithContext(ctx).
		Where("time BETWEEN ? AND ?", from, to).
		Order("time ASC").
		Find(&readings).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for sauna readings: %w", err)
	}

	samples := make([]sessions.Observation, 0, len(readings))
	for _, r := range readings {
		samples = append(samples, sessions.Observation{
			Time:         r.Time,
			TemperatureC: r.TemperatureC,
		})
	}
	return samples, nil
}

// Name implements Source.
func (t *TimescaleSource) Name() string {
	return "timescaledb"
}

// Close releases the underlying connection pool.
func (t *TimescaleSource) Close() error {
	sqlDB, err := t.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
