package app

import "time"

// Config описывает настройки запуска приложения.
type Config struct {
	// MetricsAddr — адрес HTTP-сервера с /metrics и health-пробами.
	MetricsAddr string
	// KafkaBrokers — список брокеров через запятую. Пустое значение
	// отключает Kafka: события остаются в outbox и логируются.
	KafkaBrokers string
	// SeedFile — путь к YAML со стартовыми данными. Пустое значение
	// загружает встроенный набор, "none" оставляет витрину пустой.
	SeedFile string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	OutboxMaxAttempts    int
	OutboxRetryBaseDelay time.Duration
	// OutboxMaxPending — порог backlog, после которого health-проба
	// переводит outbox в degraded.
	OutboxMaxPending int

	StockwatchInterval time.Duration
	LowStockThreshold  int

	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:          ":9090",
		OutboxPollInterval:   1 * time.Second,
		OutboxBatchSize:      20,
		OutboxMaxAttempts:    5,
		OutboxRetryBaseDelay: 500 * time.Millisecond,
		OutboxMaxPending:     100,
		StockwatchInterval:   5 * time.Second,
		LowStockThreshold:    5,
		ShutdownTimeout:      5 * time.Second,
	}
}
