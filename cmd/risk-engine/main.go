package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/config"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/adapters"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/engine"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/kafka"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/store"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/websocket"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/api"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/metrics"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

const systemMetricsInterval = 15 * time.Second

// priceStore is what the engine needs from a price source
type priceStore interface {
	risk.HistoricalDataStore
	engine.SymbolLister
}

func main() {
	dotenvFile := flag.String("dotenv", ".env.local", "dotenv file loaded before the configuration")
	flag.Parse()

	if _, err := os.Stat(*dotenvFile); err == nil {
		if err := godotenv.Load(*dotenvFile); err != nil {
			logger.GetLogger("risk-engine.main").Fatalf("Failed to load %s: %v", *dotenvFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger("risk-engine.main").Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("risk-engine.main")
	defer log.Sync()
	log.Infof("Starting %s (%s)", cfg.App.Name, cfg.App.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metricsRecorder := metrics.NewRecorder(registry)
	recorder := adapters.NewMetricsAdapter(metricsRecorder)

	// Closers run in reverse order on shutdown
	var closers []func() error

	prices, err := openPriceStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open price store: %v", err)
	}
	if closer, ok := prices.(interface{ Close() error }); ok {
		closers = append(closers, closer.Close)
	}

	calculator := risk.NewCalculator(risk.CalculatorConfig{
		HorizonLength:  cfg.Simulation.HorizonLength,
		TrialCount:     cfg.Simulation.TrialCount,
		Percentiles:    cfg.Risk.Percentiles,
		TailIndex:      cfg.Model.TailIndex,
		Skew:           cfg.Model.Skew,
		Seed:           cfg.Simulation.Seed,
		HistoricalDays: cfg.Risk.HistoricalDays,
		HistogramBins:  cfg.Simulation.HistogramBins,
		Workers:        cfg.Simulation.Workers,
		BatchSize:      cfg.Simulation.BatchSize,
	}, prices, recorder)

	reports, err := openReportStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open report store: %v", err)
	}
	if closer, ok := reports.(interface{ Close() error }); ok {
		closers = append(closers, closer.Close)
	}

	hub := websocket.NewHub(recorder.RecordWebsocketClients)
	go hub.Run(ctx)

	publishers := []engine.Publisher{adapters.NewHubPublisher(hub)}

	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			WriteTimeout: cfg.Kafka.WriteTimeout,
		})
		if err != nil {
			log.Fatalf("Failed to create Kafka producer: %v", err)
		}
		closers = append(closers, producer.Close)
		publishers = append(publishers, adapters.NewKafkaPublisher(producer, adapters.DefaultKafkaPublisherConfig()))

		if cfg.Kafka.PricesTopic != "" {
			if err := startPriceConsumer(ctx, cfg, prices, &closers); err != nil {
				log.Fatalf("Failed to start price consumer: %v", err)
			}
		}
	}

	riskEngine := engine.New(calculator, prices, reports, recorder, publishers...)

	scheduler, err := engine.NewScheduler(riskEngine, engine.ScheduleSpec(cfg.Risk.Schedule, cfg.Risk.RecalculationInterval))
	if err != nil {
		log.Fatalf("Invalid recalculation schedule: %v", err)
	}
	scheduler.Start(ctx)
	log.Infof("Next recalculation at %s", scheduler.Next().Format(time.RFC3339))

	apiServer := api.NewServer(api.Config{
		Host:         cfg.API.Host,
		Port:         cfg.API.Port,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		RateLimit:    cfg.API.RateLimit,
		RateBurst:    cfg.API.RateBurst,
		CORS: api.CORSConfig{
			AllowedOrigins: cfg.API.CORS.AllowedOrigins,
			AllowedMethods: cfg.API.CORS.AllowedMethods,
			AllowedHeaders: cfg.API.CORS.AllowedHeaders,
		},
	}, api.Dependencies{
		Analyzer:  calculator,
		Engine:    riskEngine,
		Prices:    prices,
		Recorder:  recorder,
		Gatherer:  registry,
		Websocket: http.HandlerFunc(hub.HandleWebSocket),
	})

	errChan := make(chan error, 2)
	go func() {
		if err := apiServer.Start(); err != nil {
			errChan <- err
		}
	}()

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, registry)
		go func() {
			if err := promServer.Start(); err != nil {
				errChan <- err
			}
		}()
	}

	go metricsRecorder.CollectSystemMetrics(ctx, systemMetricsInterval)

	// Initial pass so reports exist before the first tick
	go func() {
		if err := riskEngine.RecalculateAll(ctx); err != nil {
			log.Warnf("Initial risk calculation incomplete: %v", err)
		}
	}()

	log.Info("Risk engine started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Infof("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		log.Errorf("Server failed: %v", err)
	}

	cancel()
	scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer shutdownCancel()

	var errs error
	errs = multierr.Append(errs, apiServer.Stop(shutdownCtx))
	if promServer != nil {
		errs = multierr.Append(errs, promServer.Stop(shutdownCtx))
	}
	for i := len(closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, closers[i]())
	}
	if errs != nil {
		log.Errorf("Shutdown finished with errors: %v", errs)
	}

	log.Info("Shutdown complete")
}

func openPriceStore(cfg *config.Config) (priceStore, error) {
	switch cfg.Store.Driver {
	case "mysql":
		prices, err := store.ConnectSQLHistoricalDataStore("mysql", cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return prices, nil
	default:
		prices := store.NewInMemoryHistoricalDataStore()
		if err := seedSyntheticPrices(prices, cfg.Risk.Symbols, cfg.Risk.HistoricalDays); err != nil {
			return nil, err
		}
		return prices, nil
	}
}

func openReportStore(ctx context.Context, cfg *config.Config) (engine.ReportStore, error) {
	redisCfg := cfg.Reports.Redis
	if redisCfg.Addr == "" {
		return store.NewInMemoryReportStore(), nil
	}

	reports := store.NewRedisReportStore(redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	}), redisCfg.TTL)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := reports.Ping(pingCtx); err != nil {
		reports.Close()
		return nil, err
	}
	return reports, nil
}

func startPriceConsumer(ctx context.Context, cfg *config.Config, prices priceStore, closers *[]func() error) error {
	log := logger.GetLogger("risk-engine.prices")

	sink, ok := prices.(kafka.PriceSink)
	if !ok {
		log.Warnf("Store driver %s is read-only, not consuming %s", cfg.Store.Driver, cfg.Kafka.PricesTopic)
		return nil
	}

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.PricesTopic,
		GroupID: cfg.Kafka.GroupID,
	})
	if err != nil {
		return err
	}
	*closers = append(*closers, consumer.Close)

	go func() {
		if err := consumer.ConsumeMessages(ctx, kafka.PriceHandler(sink)); err != nil {
			log.Errorf("Price consumer stopped: %v", err)
		}
	}()
	return nil
}
