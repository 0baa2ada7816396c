package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/app"
	"github.com/vladislavdragonenkov/marketplace/internal/seed"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// Переменные окружения, которыми переопределяется конфигурация по умолчанию.
const (
	envMetricsAddr          = "MARKET_METRICS_ADDR"
	envKafkaBrokers         = "KAFKA_BROKERS"
	envSeedFile             = seed.EnvSeedFile
	envLogLevel             = "MARKET_LOG_LEVEL"
	envLogJSON              = "MARKET_LOG_JSON"
	envOutboxPollInterval   = "MARKET_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize      = "MARKET_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts    = "MARKET_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryBaseDelay = "MARKET_OUTBOX_RETRY_BASE_DELAY"
	envOutboxMaxPending     = "MARKET_OUTBOX_MAX_PENDING"
	envStockwatchInterval   = "MARKET_STOCKWATCH_INTERVAL"
	envLowStockThreshold    = "MARKET_LOW_STOCK_THRESHOLD"
	envShutdownTimeout      = "MARKET_SHUTDOWN_TIMEOUT"
)

// envLookup абстрагирует os.LookupEnv для тестов.
type envLookup func(key string) (string, bool)

// setupLogger настраивает формат и уровень логирования.
func setupLogger() {
	jsonFormat := false
	if v := os.Getenv(envLogJSON); v != "" {
		parsed, err := parseBool(v)
		if err != nil {
			log.WithField("value", v).Warn("invalid MARKET_LOG_JSON, using text format")
		} else {
			jsonFormat = parsed
		}
	}
	if jsonFormat {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if v := os.Getenv(envLogLevel); v != "" {
		parsed, err := log.ParseLevel(v)
		if err != nil {
			log.WithField("value", v).Warn("unknown log level, using info")
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)
}

// readConfigFromEnv формирует конфигурацию приложения из переменных
// окружения. Некорректные значения не прерывают запуск: поле остаётся
// со значением по умолчанию, а причина возвращается в warnings.
func readConfigFromEnv(lookup envLookup) (app.Config, []string) {
	cfg := app.DefaultConfig()
	var warnings []string

	if v, ok := lookup(envMetricsAddr); ok && strings.TrimSpace(v) != "" {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envKafkaBrokers); ok {
		cfg.KafkaBrokers = strings.TrimSpace(v)
	}
	if v, ok := lookup(envSeedFile); ok {
		cfg.SeedFile = strings.TrimSpace(v)
	}

	if v, ok := lookup(envOutboxPollInterval); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxPollInterval, err))
		} else {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v, ok := lookup(envOutboxBatchSize); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxBatchSize, err))
		} else {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v, ok := lookup(envOutboxMaxAttempts); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxMaxAttempts, err))
		} else {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v, ok := lookup(envOutboxRetryBaseDelay); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxRetryBaseDelay, err))
		} else {
			cfg.OutboxRetryBaseDelay = parsed
		}
	}
	if v, ok := lookup(envOutboxMaxPending); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n >= 0 }, "must be >= 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envOutboxMaxPending, err))
		} else {
			cfg.OutboxMaxPending = parsed
		}
	}
	if v, ok := lookup(envStockwatchInterval); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envStockwatchInterval, err))
		} else {
			cfg.StockwatchInterval = parsed
		}
	}
	if v, ok := lookup(envLowStockThreshold); ok {
		if parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envLowStockThreshold, err))
		} else {
			cfg.LowStockThreshold = parsed
		}
	}
	if v, ok := lookup(envShutdownTimeout); ok {
		if parsed, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0"); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", envShutdownTimeout, err))
		} else {
			cfg.ShutdownTimeout = parsed
		}
	}

	return cfg, warnings
}

// parseBool разбирает булево значение с поддержкой yes/no и on/off.
func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value %q", value)
	}
}

func parseInt(value string, valid func(int) bool, hint string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid integer value %q", value)
	}
	if !valid(parsed) {
		return 0, fmt.Errorf("value %d is out of range: %s", parsed, hint)
	}
	return parsed, nil
}

func parseDuration(value string, valid func(time.Duration) bool, hint string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid duration value %q", value)
	}
	if !valid(parsed) {
		return 0, fmt.Errorf("value %s is out of range: %s", parsed, hint)
	}
	return parsed, nil
}

func main() {
	setupLogger()

	cfg, warnings := readConfigFromEnv(os.LookupEnv)
	for _, warning := range warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":      version.GetVersion(),
		"metrics_addr": cfg.MetricsAddr,
	}).Info("запускаем Marketplace")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("Marketplace остановлен")
}
