package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tygwan/risk-engine/internal/config"
	"github.com/tygwan/risk-engine/internal/exchange"
	"github.com/tygwan/risk-engine/internal/exchange/bybit"
	"github.com/tygwan/risk-engine/internal/logger"
	"github.com/tygwan/risk-engine/internal/monitoring"
	"github.com/tygwan/risk-engine/internal/notifications"
	"github.com/tygwan/risk-engine/internal/orchestrator"
	"github.com/tygwan/risk-engine/internal/state"
	"github.com/tygwan/risk-engine/pkg/reporting"
)

func main() {
	envFile := ".env"
	if len(os.Args) > 1 && os.Args[1] != "" {
		envFile = os.Args[1]
	}
	if err := loadEnvFile(envFile); err != nil {
		log.Printf("Warning: Could not load .env file (%v), checking environment variables...", err)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	fmt.Println("🚀 Risk Decision Engine Starting...")
	fmt.Printf("🔧 Environment: %s\n", cfg.Environment)
	fmt.Println("=" + strings.Repeat("=", 50))

	fileLog, err := logger.New("logs", "risk-engine")
	if err != nil {
		log.Fatalf("Failed to create log file: %v", err)
	}
	defer fileLog.Close()

	if cfg.Exchange.APIKey == "" || cfg.Exchange.APISecret == "" {
		log.Fatal("Please set BYBIT_API_KEY and BYBIT_API_SECRET in .env file or environment variables")
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
		Demo:      cfg.Exchange.Demo,
	})
	fmt.Printf("🏦 Exchange: Bybit (%s)\n", client.Environment())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seed the portfolio from the live account
	snapshot, err := client.GetBalances(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch account balance: %v", err)
	}
	fmt.Printf("💰 Account Value: $%.2f\n", snapshot.TotalValue)

	fees, err := client.GetFees(ctx, getEnvDefault("FEE_SYMBOL", "BTCUSDT"))
	if err != nil {
		fileLog.Warning("fee rates unavailable, using defaults: %v", err)
		fees = exchange.FeeSchedule{MakerRate: 0.0002, TakerRate: 0.00055}
	}

	var dispatcher *notifications.Dispatcher
	if cfg.Notifications.TelegramToken != "" && cfg.Notifications.TelegramChatID != "" {
		notifier := notifications.NewTelegramNotifier(cfg.Notifications.TelegramToken, cfg.Notifications.TelegramChatID)
		dispatcher = notifications.NewDispatcher(notifier, cfg.Notifications.AlertQueueSize)
		defer dispatcher.Close()
		fmt.Println("📱 Telegram alerts enabled")
	}

	store, err := state.NewStore(cfg.State.Dir)
	if err != nil {
		log.Fatalf("Failed to open state store: %v", err)
	}
	persisted, err := store.Load()
	if err != nil {
		log.Fatalf("Failed to load persisted state: %v", err)
	}

	health := monitoring.NewHealthChecker()
	health.SetConnected(true)

	engine := orchestrator.NewEngine(cfg.Risk, snapshot.TotalValue, orchestrator.Options{
		OrderBooks:     client,
		OrderBookDepth: cfg.Monitor.OrderBookDepth,
		Fees:           fees,
		Dispatcher:     dispatcher,
		Store:          store,
		Logger:         fileLog,
		Health:         health,
	})
	if persisted != nil {
		engine.Restore(persisted)
		fmt.Printf("♻️  Restored session state (peak $%.2f, breaker %s)\n",
			persisted.Portfolio.PeakValue, persisted.Portfolio.BreakerState)
	}

	startHTTPServers(cfg, health)

	scheduler := orchestrator.NewScheduler(engine, client, client, orchestrator.SchedulerOptions{
		LiquidationInterval: cfg.Monitor.LiquidationInterval,
		DrawdownInterval:    cfg.Monitor.DrawdownInterval,
		Emergency:           &alertOnlyEmergency{log: fileLog},
		Health:              health,
		Logger:              fileLog,
	})
	scheduler.Start(ctx)

	fmt.Printf("🔄 Monitors running (liquidation %s, drawdown %s)\n",
		cfg.Monitor.LiquidationInterval, cfg.Monitor.DrawdownInterval)
	fmt.Println(strings.Repeat("=", 51))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\n🛑 Shutdown signal received...")

	cancel()
	scheduler.Stop()
	if err := engine.SaveState(); err != nil {
		log.Printf("Warning: failed to persist final state: %v", err)
	}

	// Final session report before exit
	reporter := reporting.NewConsoleReporter()
	metrics := engine.Metrics()
	reporter.PrintRiskSummary(engine.Snapshot(), &metrics)
	reporter.PrintOpenPositions(engine.Snapshot(), engine.LatestAssessments())

	fmt.Println("✅ Risk engine stopped successfully")
}

// alertOnlyEmergency is the emergency handler for a deployment where the
// engine runs as an advisory sidecar. It cannot reach the execution layer,
// so a halt is escalated through logs and alerts for the operator to act
// on.
type alertOnlyEmergency struct {
	log *logger.Logger
}

func (h *alertOnlyEmergency) CloseAllPositions(ctx context.Context) error {
	h.log.Alert("HALT: close all open positions immediately")
	return nil
}

func (h *alertOnlyEmergency) DisableTrading(ctx context.Context) error {
	h.log.Alert("HALT: trading disabled until operator reset")
	return nil
}

func startHTTPServers(cfg *config.Config, health *monitoring.HealthChecker) {
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", monitoring.NewMetricsHandler())
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		server := &http.Server{Addr: addr, Handler: metricsMux, ReadHeaderTimeout: 5 * time.Second}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	healthMux := http.NewServeMux()
	healthMux.Handle("/health", health)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		server := &http.Server{Addr: addr, Handler: healthMux, ReadHeaderTimeout: 5 * time.Second}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health server error: %v", err)
		}
	}()

	fmt.Printf("📊 Prometheus metrics on :%d/metrics, health on :%d/health\n",
		cfg.Monitoring.PrometheusPort, cfg.Monitoring.HealthPort)
}

func loadEnvFile(envFile string) error {
	if _, err := os.Stat(envFile); err == nil {
		return godotenv.Load(envFile)
	}
	return fmt.Errorf("env file %s not found", envFile)
}

func getEnvDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
