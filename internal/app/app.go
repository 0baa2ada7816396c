package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/marketplace/internal/console"
	"github.com/vladislavdragonenkov/marketplace/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/marketplace/internal/health"
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/seed"
	"github.com/vladislavdragonenkov/marketplace/internal/service/outbox"
	"github.com/vladislavdragonenkov/marketplace/internal/service/stockwatch"
	"github.com/vladislavdragonenkov/marketplace/internal/version"
)

// Run запускает приложение с консолью на stdin/stdout.
func Run(ctx context.Context, cfg Config) error {
	return RunWithIO(ctx, cfg, os.Stdin, os.Stdout)
}

// RunWithIO собирает зависимости, наполняет витрину, поднимает фоновые
// воркеры и HTTP-сервер метрик, затем ведёт консольную сессию до выхода
// пользователя или отмены ctx.
func RunWithIO(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	logger := log.WithField("component", "app")

	deps := NewDependencies(logger)

	seedData, err := seed.Resolve(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("resolve seed data: %w", err)
	}
	if err := seed.Apply(seedData, deps.Registry); err != nil {
		return fmt.Errorf("apply seed data: %w", err)
	}
	logger.WithFields(log.Fields{
		"sellers":   len(seedData.Sellers),
		"customers": len(seedData.Customers),
	}).Info("стартовые данные загружены")

	// Kafka опционален: без брокеров события подтверждаются локально
	// и остаются доступными через Stats/отчёты.
	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)

	processor := createProcessor(deps, kafkaProducer)

	outboxOptions := []outbox.Option{
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithPollInterval(cfg.OutboxPollInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithRetryBaseDelay(cfg.OutboxRetryBaseDelay),
	}

	var publisher domain.OutboxPublisher
	if kafkaProducer != nil {
		publisher = kafka.NewOutboxPublisher(kafkaProducer, kafka.TopicOrderEvents)
		outboxOptions = append(outboxOptions, outbox.WithDLQPublisher(kafka.NewDLQPublisher(kafkaProducer)))
	} else {
		publisher = noopPublisher{logger: logger.WithField("component", "outbox-log-sink")}
	}

	outboxWorker := outbox.NewWorker(deps.Outbox, publisher, outboxOptions...)

	stockWorker := stockwatch.NewWorker(
		deps.Catalog,
		deps.Outbox,
		stockwatch.WithLogger(logger.WithField("component", "stockwatch")),
		stockwatch.WithInterval(cfg.StockwatchInterval),
		stockwatch.WithThreshold(cfg.LowStockThreshold),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.Register("catalog", catalogCheck(deps.Catalog))
	healthHandler.Register("outbox", outboxCheck(deps.Outbox, cfg.OutboxMaxPending))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		outboxWorker.Run(workerCtx)
	}()
	go func() {
		defer wg.Done()
		stockWorker.Run(workerCtx)
	}()

	session := console.NewSession(
		deps.Registry,
		deps.Browse,
		deps.Cart,
		processor,
		deps.Reporting,
		logger.WithField("component", "console"),
		in,
		out,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- session.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, завершаем работу")
		runErr = ctx.Err()
	case err := <-errCh:
		runErr = err
	}

	stopWorkers()
	stoppedCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("воркеры не остановились за таймаут")
	}

	// Финальный дренаж outbox: события последнего оформления не должны
	// потеряться между остановкой воркера и выходом.
	outboxWorker.ProcessOnce(context.Background())

	shutdownHTTP(metricsSrv, logger)
	closeKafka(kafkaProducer, logger)

	return runErr
}

// noopPublisher подтверждает публикацию без брокера: запись остаётся в логе,
// а outbox переводит её в sent. Используется когда Kafka не настроен.
type noopPublisher struct {
	logger *log.Entry
}

func (p noopPublisher) Publish(event domain.OutboxMessage) error {
	p.logger.WithFields(log.Fields{
		"outbox_id":  event.ID,
		"event_type": event.EventType,
	}).Debug("outbox event published to log sink")
	return nil
}

// catalogCheck помечает пустой каталог как degraded: процесс жив,
// но витрина не наполнена.
func catalogCheck(catalog domain.CatalogRepository) healthcheck.CheckFunc {
	return func() error {
		if len(catalog.List()) == 0 {
			return fmt.Errorf("%w: catalog is empty", healthcheck.ErrDegraded)
		}
		return nil
	}
}

// outboxCheck следит за backlog: превышение maxPending — degraded,
// ошибка чтения статистики — unhealthy.
func outboxCheck(outboxRepo domain.OutboxRepository, maxPending int) healthcheck.CheckFunc {
	return func() error {
		stats, err := outboxRepo.Stats()
		if err != nil {
			return err
		}
		if maxPending > 0 && stats.PendingCount > maxPending {
			return fmt.Errorf("%w: outbox backlog %d exceeds %d", healthcheck.ErrDegraded, stats.PendingCount, maxPending)
		}
		return nil
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health-пробами.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
