package config

import (
	"os"
	"strconv"
	"time"
)

// RiskConfig is the immutable risk rule configuration, loaded once at
// startup and validated before the engine is constructed
type RiskConfig struct {
	FractionalKelly      float64 // Kelly scale-down factor, in (0,1]
	MaxPositionPct       float64 // max single position as fraction of portfolio
	MaxTotalExposurePct  float64 // max summed exposure as fraction of portfolio
	MinNotional          float64 // smallest trade value worth validating
	MaxDrawdownPct       float64 // drawdown fraction that trips the breaker
	LiquidationBufferPct float64 // extra distance demanded above exchange minimums
	MinProfitToCostRatio float64 // cost gate profit floor
	MaxSlippagePct       float64 // cost gate slippage ceiling
	SizeTolerance        float64 // multiplier on the sizer's recommendation
	MEVLossFraction      float64 // sandwich loss heuristic
	MetricsRecalcTrades  int     // performance tracker cadence
}

// Config is the full engine configuration
type Config struct {
	Environment string
	LogLevel    string

	Risk RiskConfig

	Exchange struct {
		APIKey    string
		APISecret string
		Testnet   bool
		Demo      bool
	}

	Monitor struct {
		LiquidationInterval time.Duration
		DrawdownInterval    time.Duration
		OrderBookDepth      int
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}

	Notifications struct {
		TelegramToken  string
		TelegramChatID string
		AlertQueueSize int
	}

	State struct {
		Dir      string
		AutoSave bool
	}
}

// Load reads configuration from environment variables with sensible
// defaults. Call Validate before using the result.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Risk = RiskConfig{
		FractionalKelly:      getEnvFloat("RISK_FRACTIONAL_KELLY", 0.25),
		MaxPositionPct:       getEnvFloat("RISK_MAX_POSITION_PCT", 0.10),
		MaxTotalExposurePct:  getEnvFloat("RISK_MAX_TOTAL_EXPOSURE_PCT", 0.50),
		MinNotional:          getEnvFloat("RISK_MIN_NOTIONAL", 10.0),
		MaxDrawdownPct:       getEnvFloat("RISK_MAX_DRAWDOWN_PCT", 0.20),
		LiquidationBufferPct: getEnvFloat("RISK_LIQUIDATION_BUFFER_PCT", 0.05),
		MinProfitToCostRatio: getEnvFloat("RISK_MIN_PROFIT_COST_RATIO", 2.0),
		MaxSlippagePct:       getEnvFloat("RISK_MAX_SLIPPAGE_PCT", 0.005),
		SizeTolerance:        getEnvFloat("RISK_SIZE_TOLERANCE", 1.0),
		MEVLossFraction:      getEnvFloat("RISK_MEV_LOSS_FRACTION", 0.005),
		MetricsRecalcTrades:  getEnvInt("RISK_METRICS_RECALC_TRADES", 50),
	}

	cfg.Exchange.APIKey = getEnv("BYBIT_API_KEY", "")
	cfg.Exchange.APISecret = getEnv("BYBIT_API_SECRET", "")
	cfg.Exchange.Testnet = getEnvBool("BYBIT_TESTNET", true)
	cfg.Exchange.Demo = getEnvBool("BYBIT_DEMO", false)

	cfg.Monitor.LiquidationInterval = getEnvDuration("MONITOR_LIQUIDATION_INTERVAL", 30*time.Second)
	cfg.Monitor.DrawdownInterval = getEnvDuration("MONITOR_DRAWDOWN_INTERVAL", 5*time.Minute)
	cfg.Monitor.OrderBookDepth = getEnvInt("MONITOR_ORDERBOOK_DEPTH", 25)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	cfg.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", "")
	cfg.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")
	cfg.Notifications.AlertQueueSize = getEnvInt("ALERT_QUEUE_SIZE", 64)

	cfg.State.Dir = getEnv("STATE_DIR", "state")
	cfg.State.AutoSave = getEnvBool("STATE_AUTOSAVE", true)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
