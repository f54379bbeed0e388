package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/niksmo/product-explorer/config"
	"github.com/niksmo/product-explorer/internal/adapter"
	"github.com/niksmo/product-explorer/internal/adapter/httphandler"
	"github.com/niksmo/product-explorer/internal/adapter/kafka"
	"github.com/niksmo/product-explorer/internal/adapter/kvstore"
	"github.com/niksmo/product-explorer/internal/adapter/metrics"
	"github.com/niksmo/product-explorer/internal/adapter/source"
	"github.com/niksmo/product-explorer/internal/adapter/storage"
	"github.com/niksmo/product-explorer/internal/core/domain"
	"github.com/niksmo/product-explorer/internal/core/port"
	"github.com/niksmo/product-explorer/internal/core/service"
	"github.com/niksmo/product-explorer/pkg/schema"
	"golang.org/x/sync/errgroup"
)

type serdes struct {
	product     schema.Serde
	clientEvent schema.Serde
}

type producers struct {
	products     *kafka.ProductsProducer
	clientEvents *kafka.ClientEventsProducer
}

type App struct {
	ctx     context.Context
	cfg     config.Config
	metrics *metrics.Metrics

	brokers    kafka.Brokers
	serdes     serdes
	producers  producers
	consumer   *kafka.ProductsConsumer
	stateTable port.StateTable
	redis      *kvstore.RedisStore
	sqlDB      *storage.SQLDB

	source port.ProductsSource
	state  port.KeyValueStore

	service    *service.Service
	httpServer *httphandler.HTTPServer
	group      *errgroup.Group
}

// New builds the application from config. It panics when a required
// dependency can not be set up.
func New(ctx context.Context, cfg config.Config) *App {
	app := &App{ctx: ctx, cfg: cfg, metrics: metrics.New()}

	app.initLogger()
	app.initSQLDB()
	app.initBroker()
	app.initSerdes()
	app.initProducers()
	app.initSource()
	app.initState()
	app.initCoreService()
	app.initConsumer()
	app.initInboundAdapters()

	return app
}

func (app *App) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *App) sqlRequired() bool {
	return app.cfg.Catalog.Source == config.SourceSQL ||
		app.cfg.State.Backend == config.StateSQL ||
		(app.cfg.Broker.Enabled() && app.cfg.SQLDB != "")
}

func (app *App) initSQLDB() {
	const op = "App.initSQLDB"

	if !app.sqlRequired() {
		return
	}

	db, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqlDB = &db
}

func (app *App) initBroker() {
	const op = "App.initBroker"

	if !app.cfg.Broker.Enabled() {
		slog.Info("broker is not configured, ingestion and client events are off")
		return
	}

	app.brokers.Seeds = app.cfg.Broker.SeedBrokers

	tlsCfg := app.cfg.Broker.TLS
	if tlsCfg.Enabled() {
		tc, err := adapter.MakeTLSConfig(tlsCfg.CA, tlsCfg.Cert, tlsCfg.Key)
		if err != nil {
			app.fallDown(op, err)
		}
		app.brokers.TLS = tc
	}
}

func (app *App) initSerdes() {
	const op = "App.initSerdes"

	if !app.cfg.Broker.Enabled() {
		return
	}

	registry, err := schema.NewRegistry(app.cfg.Broker.SchemaRegistryURLs...)
	if err != nil {
		app.fallDown(op, err)
	}

	topics := app.cfg.Broker.Topics

	productSerde, err := schema.NewSerdeProductV1(
		app.ctx,
		schema.SubjectOpt(schema.TopicSubject(topics.Products)),
		schema.SchemaIdentifierOpt(registry),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	clientEventSerde, err := schema.NewSerdeClientEventV1(
		app.ctx,
		schema.SubjectOpt(schema.TopicSubject(topics.ClientEvents)),
		schema.SchemaIdentifierOpt(registry),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.serdes.product = productSerde
	app.serdes.clientEvent = clientEventSerde
}

func (app *App) initProducers() {
	const op = "App.initProducers"

	if !app.cfg.Broker.Enabled() {
		return
	}

	topics := app.cfg.Broker.Topics

	productsProducer, err := kafka.NewProductsProducer(
		kafka.ProducerClientOpt(app.ctx, app.brokers, topics.Products),
		kafka.ProducerEncoderOpt(app.serdes.product),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	clientEventsProducer, err := kafka.NewClientEventsProducer(
		kafka.ProducerClientOpt(app.ctx, app.brokers, topics.ClientEvents),
		kafka.ProducerEncoderOpt(app.serdes.clientEvent),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.producers.products = &productsProducer
	app.producers.clientEvents = &clientEventsProducer
}

func (app *App) initSource() {
	c := app.cfg.Catalog
	switch c.Source {
	case config.SourceHTTP:
		app.source = source.NewHTTPSource(c.SourceURL, c.FetchTimeout)
	case config.SourceSQL:
		app.source = storage.NewProductsRepository(app.sqlDB)
	default:
		app.source = source.NewFileSource(c.SourcePath)
	}
	slog.Info("products source is set", "source", c.Source)
}

func (app *App) initState() {
	const op = "App.initState"

	s := app.cfg.State
	switch s.Backend {
	case config.StateRedis:
		rs, err := kvstore.NewRedisStore(app.ctx, s.RedisAddr, s.RedisPrefix)
		if err != nil {
			app.fallDown(op, err)
		}
		app.redis = rs
		app.state = rs
	case config.StateSQL:
		app.state = storage.NewStateRepository(app.sqlDB)
	case config.StateKafka:
		st, err := kafka.NewStateTable(kafka.StateTableConfig{
			Brokers: app.brokers,
			Stream:  app.cfg.Broker.Topics.StateStream,
			Group:   app.cfg.Broker.Consumers.StateGroup,
		})
		if err != nil {
			app.fallDown(op, err)
		}
		app.stateTable = st
		app.state = st
	default:
		app.state = kvstore.NewMemoryStore()
	}
	slog.Info("session state backend is set", "backend", s.Backend)
}

func (app *App) initCoreService() {
	opts := []service.Opt{
		service.CatalogMetricsOpt(app.metrics),
		service.DefaultThemeOpt(domain.Theme(app.cfg.Catalog.DefaultTheme)),
		service.MaxSessionsOpt(app.cfg.HTTP.MaxSessions),
	}
	if app.producers.products != nil {
		opts = append(opts, service.ProductsProducerOpt(app.producers.products))
	}
	if app.producers.clientEvents != nil {
		opts = append(opts, service.ClientEventsProducerOpt(app.producers.clientEvents))
	}
	if app.sqlDB != nil {
		opts = append(opts, service.ProductsStorageOpt(
			storage.NewProductsRepository(app.sqlDB),
		))
	}
	app.service = service.New(app.source, app.state, opts...)
}

func (app *App) initConsumer() {
	const op = "App.initConsumer"

	if !app.cfg.Broker.Enabled() {
		return
	}
	if app.sqlDB == nil {
		slog.Warn("sql_db is not configured, products consumer is off")
		return
	}

	b := app.cfg.Broker
	consumer, err := kafka.NewProductsConsumer(
		kafka.ConsumerClientOpt(
			app.brokers, b.Topics.Products, b.Consumers.ProductSaverGroup,
		),
		kafka.ConsumerDecoderOpt(app.serdes.product),
		kafka.ProductsConsumerSaverOpt(app.service),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.consumer = &consumer
}

func (app *App) initInboundAdapters() {
	const op = "App.initInboundAdapters"

	h := app.cfg.HTTP
	router := httphandler.NewRouter(httphandler.RouterConfig{
		Explorer:       app.service,
		Metrics:        app.metrics,
		RateLimit:      h.RateLimit,
		RateWindow:     h.RateWindow,
		RequestTimeout: h.RequestTimeout,
	})
	app.httpServer = httphandler.NewHTTPServer(app.cfg.HTTPServerAddr, router)
	if err := app.httpServer.Listen(); err != nil {
		app.fallDown(op, err)
	}
}

// Run starts the components. stopFn is called when one of them stops
// unexpectedly.
func (app *App) Run(stopFn context.CancelFunc) {
	if app.stateTable != nil {
		var wg sync.WaitGroup
		wg.Add(1)
		go app.stateTable.Run(app.ctx, stopFn, &wg)
		wg.Wait()
	}

	app.group = new(errgroup.Group)

	app.group.Go(func() error {
		err := app.httpServer.Run()
		if err != nil {
			stopFn()
		}
		return err
	})

	if app.consumer != nil {
		app.group.Go(func() error {
			app.consumer.Run(app.ctx)
			return nil
		})
	}

	app.group.Go(func() error {
		const op = "App.loadCatalog"
		if err := app.service.Load(app.ctx); err != nil {
			slog.With("op", op).Error("initial catalog load failed", "err", err)
		}
		return nil
	})

	slog.Info("application is running")
}

func (app *App) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)

	if app.group != nil {
		if err := app.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("component stopped with error", "err", err)
		}
	}

	if app.consumer != nil {
		app.consumer.Close()
	}
	if app.producers.products != nil {
		app.producers.products.Close()
	}
	if app.producers.clientEvents != nil {
		app.producers.clientEvents.Close()
	}
	if app.stateTable != nil {
		app.stateTable.Close()
	}
	if app.redis != nil {
		app.redis.Close()
	}
	if app.sqlDB != nil {
		app.sqlDB.Close()
	}

	slog.Info("application is closed")
}

func (app *App) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
