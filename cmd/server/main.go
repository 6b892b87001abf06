package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	glog "github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/booking-marketplace/internal/config"
	"github.com/iliyamo/booking-marketplace/internal/database"
	"github.com/iliyamo/booking-marketplace/internal/handler"
	"github.com/iliyamo/booking-marketplace/internal/middleware"
	"github.com/iliyamo/booking-marketplace/internal/queue"
	"github.com/iliyamo/booking-marketplace/internal/repository"
	"github.com/iliyamo/booking-marketplace/internal/router"
	"github.com/iliyamo/booking-marketplace/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DBMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Println("database: schema applied")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Println("redis: unavailable; response cache off, rate limiting in process")
	} else {
		defer rdb.Close()
	}

	var events service.EventPublisher
	if cfg.RabbitURL != "" {
		pub, err := queue.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Printf("rabbitmq: publisher disabled: %v", err)
		} else {
			defer pub.Close()
			events = pub
		}
	}

	users := repository.NewUserRepo(db)
	services := repository.NewServiceRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)
	notifications := repository.NewNotificationRepo(db)
	tokens := repository.NewTokenRepo(db)

	notifier := service.NewNotificationEmitter(notifications, cfg.NotifyTimeout)
	bookingSvc := service.NewBookingService(bookings, services, notifier, events)
	reviewSvc := service.NewReviewService(bookings, reviews, notifier)

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens, repository.NewAuthLogRepo(db)),
		Bookings:      handler.NewBookingHandler(bookingSvc, reviewSvc, cfg.RequestTimeout),
		Catalog:       handler.NewCatalogHandler(services, repository.NewCategoryRepo(db), reviews, cfg.RequestTimeout),
		Provider:      handler.NewProviderHandler(users, bookings, reviews, repository.NewAvailabilityRepo(db), cfg.RequestTimeout),
		Notifications: handler.NewNotificationHandler(notifications, cfg.RequestTimeout),
		Admin:         handler.NewAdminHandler(users, services, bookings, tokens, cfg.RequestTimeout),
	}

	e := newEcho(cfg)
	router.RegisterRoutes(e, db)
	router.RegisterAPI(e, h, router.Options{
		JWTSecret: cfg.JWTSecret,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.ConsumerEnabled && cfg.RabbitURL != "" {
		g.Go(func() error {
			err := queue.StartBookingConsumer(gctx, cfg.RabbitURL, cfg.EventsLogDir)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Println("shutting down")
		return e.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: %v", err)
	}
}

// newEcho builds the echo instance with the shared middleware chain.
func newEcho(cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = middleware.NewValidator()
	if cfg.IsDev() {
		e.Logger.SetLevel(glog.DEBUG)
	} else {
		e.Logger.SetLevel(glog.INFO)
	}

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	return e
}
