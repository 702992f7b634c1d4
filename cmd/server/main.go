package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/airport-booking/internal/booking"
	"github.com/iliyamo/airport-booking/internal/config"
	"github.com/iliyamo/airport-booking/internal/database"
	"github.com/iliyamo/airport-booking/internal/handler"
	"github.com/iliyamo/airport-booking/internal/middleware"
	"github.com/iliyamo/airport-booking/internal/model"
	"github.com/iliyamo/airport-booking/internal/queue"
	"github.com/iliyamo/airport-booking/internal/report"
	"github.com/iliyamo/airport-booking/internal/repository"
	"github.com/iliyamo/airport-booking/internal/repository/memstore"
	"github.com/iliyamo/airport-booking/internal/repository/sqlstore"
	"github.com/iliyamo/airport-booking/internal/router"
	"github.com/iliyamo/airport-booking/internal/workforce"
)

// backend is everything the services need from a store.
type backend interface {
	repository.TxStore
	workforce.Repository
	report.Reader
	handler.Pinger
	handler.AirportLister
}

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	logger := newLogger(cfg.Env)

	store, closeStore := openStore(cfg, logger)
	defer closeStore()

	fares := booking.NewFareCalculator(store, farePolicy(cfg.Booking))
	if err := fares.Policy().Validate(); err != nil {
		logger.Fatalf("fare policy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Events are optional; the engine takes a nil sink when they are off.
	var events booking.EventSink
	evCfg := config.LoadEventsConfig()
	if evCfg.Enabled {
		events = queue.NewPublisher(evCfg, logger)
		go func() {
			if err := queue.NewConsumer(evCfg, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("ticket event consumer stopped")
			}
		}()
	}

	engine := booking.NewEngine(store, fares, enginePolicy(cfg.Booking), events, logger)
	reports := report.NewService(store)
	staff := workforce.NewService(store)

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logger.Warn("redis unavailable: cache and rate limiting disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))

	router.Register(e, router.Handlers{
		Health:     handler.NewHealthHandler(store),
		Flights:    handler.NewFlightHandler(booking.NewCatalog(store), fares, engine),
		Tickets:    handler.NewTicketHandler(engine),
		Passengers: handler.NewPassengerHandler(reports),
		Airports:   handler.NewAirportHandler(store, fares),
		Workers:    handler.NewWorkerHandler(staff),
		Reports:    handler.NewReportHandler(reports, staff),
	}, router.Options{
		RoleHeader: cfg.RoleHeader,
		UserHeader: cfg.UserHeader,
		RateLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		Cache:      middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
}

func newLogger(env string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	if env == "prod" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// openStore returns the configured store and its cleanup.
func openStore(cfg config.Config, logger *logrus.Logger) (backend, func()) {
	if cfg.StoreDriver == config.DriverMemory {
		s := memstore.New()
		seedDemo(s, time.Now().UTC())
		logger.Warn("using in-memory store; data is lost on exit")
		return s, func() {}
	}

	db, err := database.Open(cfg.DB)
	if err != nil {
		logger.Fatalf("mysql: %v", err)
	}
	if cfg.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		logger.Info("schema applied")
	}
	return sqlstore.New(db), func() { _ = db.Close() }
}

func farePolicy(b config.BookingConfig) booking.FarePolicy {
	p := booking.FarePolicy{
		BaseCents:      b.FareBaseCents,
		PerKmCents:     b.FarePerKmCents,
		PerMinuteCents: b.FarePerMinuteCents,
		Multipliers: map[model.SeatClass]float64{
			model.Economy:  b.MultEconomy,
			model.Business: b.MultBusiness,
			model.First:    b.MultFirst,
		},
	}
	for _, t := range b.DemandTiers {
		p.DemandTiers = append(p.DemandTiers, booking.DemandTier{Threshold: t.Threshold, Multiplier: t.Multiplier})
	}
	return p
}

func enginePolicy(b config.BookingConfig) booking.Policy {
	return booking.Policy{RefundRate: b.RefundRate, TxTimeout: b.TxTimeout, MaxAttempts: b.MaxAttempts}
}

// requestLogger writes one logrus entry per request.
func requestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			role, _ := middleware.CallerRole(c)
			entry := logger.WithFields(logrus.Fields{
				"method":    v.Method,
				"uri":       v.URI,
				"status":    v.Status,
				"latency":   v.Latency.String(),
				"remote_ip": v.RemoteIP,
				"role":      role,
			})
			if err := handler.HandlerError(c); err != nil {
				entry = entry.WithError(err)
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				entry.Error("request")
			case v.Status >= http.StatusBadRequest:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		},
	})
}
