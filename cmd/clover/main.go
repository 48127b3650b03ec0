package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	clientrepo "github.com/Ramsey-B/clover/internal/repositories/client"
	importjobrepo "github.com/Ramsey-B/clover/internal/repositories/importjob"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/importer"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/resolver"
	healthroutes "github.com/Ramsey-B/clover/pkg/routes/health"
	importjobroutes "github.com/Ramsey-B/clover/pkg/routes/importjob"
	"github.com/Ramsey-B/clover/pkg/rowcache"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tabular"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	logger.WithField("version", version).Infof("Starting %s", cfg.AppName)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(ctx, tracing.Config{
			ServiceName: cfg.AppName,
			Endpoint:    cfg.TracingEndpoint,
			Insecure:    cfg.TracingInsecure,
			Timeout:     10 * time.Second,
		})
		if err != nil {
			logger.WithError(err).Error("Failed to initialize tracing")
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shut down tracing")
			}
		}()
	}

	app, err := buildApp(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to build application")
		os.Exit(1)
	}

	boot := startup.New(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(app.dbDep)
	boot.AddDependency(app.cacheDep)
	if app.kafkaDep != nil {
		boot.AddDependency(app.kafkaDep)
	}
	boot.AddDependency(app.serverDep)

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// app holds the wired service graph as startup dependencies
type app struct {
	dbDep     startup.Dependency
	cacheDep  startup.Dependency
	kafkaDep  startup.Dependency
	serverDep startup.Dependency
}

func buildApp(cfg config.Config, logger ectologger.Logger) (*app, error) {
	var db database.DB
	var cache *rowcache.Cache
	var producer *events.Producer

	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	var checker *healthroutes.Checker

	dbDep := startup.NewFuncDependency("postgres", nil,
		func(ctx context.Context) error {
			conn, err := database.Connect(ctx, database.Config{
				Host:            cfg.DatabaseHost,
				Port:            cfg.DatabasePort,
				User:            cfg.DatabaseUserName,
				Password:        cfg.DatabasePassword,
				Name:            cfg.DatabaseName,
				SSLMode:         cfg.DatabaseSSLMode,
				MaxOpenConns:    cfg.DatabaseMaxOpenConns,
				MaxIdleConns:    cfg.DatabaseMaxIdleConns,
				ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}

			migrations := database.NewMigrationService(logger, database.MigrationConfig{
				FolderPath: cfg.DatabaseMigrationFolderPath,
				Version:    uint(cfg.DatabaseMigrationVersion),
			})
			if err := migrations.Migrate(cfg.DatabaseName, conn); err != nil {
				return err
			}

			db = conn
			return nil
		},
		func(context.Context) error {
			if db == nil {
				return nil
			}
			return db.Close()
		},
	)

	cacheDep := startup.NewFuncDependency("redis", nil,
		func(context.Context) error {
			c, err := rowcache.NewCache(rowcache.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
				TTL:      cfg.RowCacheTTL,
			}, logger)
			if err != nil {
				return err
			}
			cache = c
			return nil
		},
		func(context.Context) error {
			if cache == nil {
				return nil
			}
			return cache.Close()
		},
	)

	var kafkaDep startup.Dependency
	if cfg.KafkaEnabled {
		kafkaDep = startup.NewFuncDependency("kafka", nil,
			func(context.Context) error {
				producer = events.NewProducer(events.ProducerConfig{
					Brokers:      cfg.KafkaBrokers,
					Topic:        cfg.KafkaOutputTopic,
					BatchSize:    cfg.KafkaBatchSize,
					BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
					RequiredAcks: cfg.KafkaRequiredAcks,
					Compression:  cfg.KafkaCompression,
				}, logger)
				return nil
			},
			func(context.Context) error {
				if producer == nil {
					return nil
				}
				return producer.Close()
			},
		)
	}

	serverDeps := []string{"postgres", "redis"}
	if cfg.KafkaEnabled {
		serverDeps = append(serverDeps, "kafka")
	}
	serverDep := startup.NewFuncDependency("http-server", serverDeps,
		func(context.Context) error {
			jobRepo := importjobrepo.NewRepository(db, logger)
			clientRepo := clientrepo.NewRepository(db, logger)
			res := resolver.New(clientRepo, logger)

			var publisher importer.EventPublisher
			if producer != nil {
				publisher = producer
			}

			service := importer.NewService(jobRepo, clientRepo, cache, res, publisher, logger, tabular.Limits{
				MaxBytes: cfg.ImportMaxUploadBytes,
				MaxRows:  cfg.ImportMaxRows,
			})

			checker = healthroutes.NewChecker(db, cache, version)
			checker.RegisterRoutes(e)

			api := e.Group("/api/v1")
			importjobroutes.NewHandler(service, logger).RegisterRoutes(api)

			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.WithError(err).Error("HTTP server stopped")
					os.Exit(1)
				}
			}()
			checker.SetReady(true)
			return nil
		},
		func(ctx context.Context) error {
			if checker != nil {
				checker.SetReady(false)
			}
			return e.Shutdown(ctx)
		},
	)

	return &app{
		dbDep:     dbDep,
		cacheDep:  cacheDep,
		kafkaDep:  kafkaDep,
		serverDep: serverDep,
	}, nil
}
