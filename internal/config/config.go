// Package config provides engine default settings loaded from the
// environment. Every value here can be overridden per call; the config
// only seeds defaults.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Defaults holds the engine-wide default parameters.
type Defaults struct {
	VaRLevel        float64 // confidence level for VaR/CVaR
	EWMALambda      float64 // RiskMetrics decay factor
	EWMADayChunk    int     // observations seeding the EWMA recursion
	ERCTolerance    float64 // equal-risk-contribution convergence tolerance
	ERCMaxIters     int     // equal-risk-contribution iteration cap
	RollingWindow   int     // default rolling-statistic observation count
	LogLevel        string
	MinAcceptedRet  float64 // MAR for downside deviation
	RiskFreeRate    float64 // annualized risk-free rate for ratios
	AllowShortSales bool    // minimum-variance weights may go negative
}

// Load reads engine defaults from environment variables, consulting a
// .env file if one exists.
func Load() *Defaults {
	_ = godotenv.Load()

	return &Defaults{
		VaRLevel:        getEnvAsFloat("QUANTSERIES_VAR_LEVEL", 0.95),
		EWMALambda:      getEnvAsFloat("QUANTSERIES_EWMA_LAMBDA", 0.94),
		EWMADayChunk:    getEnvAsInt("QUANTSERIES_EWMA_DAY_CHUNK", 11),
		ERCTolerance:    getEnvAsFloat("QUANTSERIES_ERC_TOLERANCE", 1e-9),
		ERCMaxIters:     getEnvAsInt("QUANTSERIES_ERC_MAX_ITERS", 100),
		RollingWindow:   getEnvAsInt("QUANTSERIES_ROLLING_WINDOW", 21),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MinAcceptedRet:  getEnvAsFloat("QUANTSERIES_MIN_ACCEPTED_RETURN", 0.0),
		RiskFreeRate:    getEnvAsFloat("QUANTSERIES_RISK_FREE_RATE", 0.0),
		AllowShortSales: getEnvAsBool("QUANTSERIES_ALLOW_SHORT_SALES", false),
	}
}

// Logger returns a stderr logger filtered to the configured level. An
// unknown level falls back to info.
func (d *Defaults) Logger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(d.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
