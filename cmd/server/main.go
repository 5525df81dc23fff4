package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/travel-booking/internal/cache"
	"github.com/iliyamo/travel-booking/internal/config"
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/logging"
	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/router"
	"github.com/iliyamo/travel-booking/internal/scheduler"
	"github.com/iliyamo/travel-booking/internal/service"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.Env, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

// stores bundles the catalog and booking backends selected by STORE_BACKEND.
type stores struct {
	catalog  cache.Catalog
	bookings service.BookingStore
	db       *sql.DB
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StoreBackend == config.StoreMemory {
		mem := repository.NewMemoryStore()
		if cfg.SeedCatalog {
			if err := repository.SeedCatalog(ctx, mem); err != nil {
				return stores{}, fmt.Errorf("seed catalog: %w", err)
			}
		}
		logrus.Warn("using in-memory store; bookings are lost on restart")
		return stores{catalog: mem, bookings: mem}, nil
	}

	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, fmt.Errorf("open mysql: %w", err)
	}
	if cfg.DBMigrate {
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
	}
	products := repository.NewProductRepo(db)
	if cfg.SeedCatalog {
		if err := repository.SeedCatalog(ctx, products); err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("seed catalog: %w", err)
		}
	}
	return stores{catalog: products, bookings: repository.NewBookingRepo(db), db: db}, nil
}

func run(ctx context.Context, cfg config.Config) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	if st.db != nil {
		defer st.db.Close()
	}

	// Redis is optional: without it the catalog is read straight from the
	// store and requests are not rate limited.
	var rdb *redis.Client
	catalog := st.catalog
	if client, err := config.NewRedisClient(ctx); err != nil {
		logrus.WithError(err).Warn("redis unavailable; product cache and rate limiting disabled")
	} else {
		rdb = client
		defer rdb.Close()
		catalog = cache.NewProductCache(st.catalog, rdb, config.LoadProductCacheConfig())
	}

	var opts []service.Option
	var publisher *queue.Publisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL)
		defer publisher.Close()
		opts = append(opts, service.WithEvents(publisher))
	} else {
		logrus.Warn("RABBITMQ_URL not set; booking events are not published")
	}

	bookings := service.NewBookingService(catalog, st.bookings, opts...)
	catalogSvc := service.NewCatalogService(catalog)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewRequestValidator()
	e.Use(logging.RequestLogger())

	limiter := middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb)
	checks := map[string]handler.Pinger{}
	if st.db != nil {
		checks["mysql"] = st.db
	}
	if rdb != nil {
		checks["redis"] = handler.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	router.RegisterHealth(e, handler.NewHealthHandler(checks))
	router.RegisterPublic(e, handler.NewCatalogHandler(catalogSvc),
		limiter.Middleware(), middleware.ResponseCache(config.LoadResponseCacheConfig(), rdb))
	router.RegisterCustomer(e, handler.NewCustomerHandler(bookings), cfg.JWTSecret, limiter.Middleware())
	router.RegisterAdmin(e, handler.NewAdminHandler(bookings), cfg.JWTSecret, limiter.Middleware())

	g, runCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scheduler.NewTravelSweep(bookings, cfg.SweepInterval).Run(runCtx)
	})

	if cfg.AMQPURL != "" {
		g.Go(func() error {
			return queue.NewAuditConsumer(cfg.AMQPURL, "").Run(runCtx)
		})
	}

	g.Go(func() error {
		addr := ":" + cfg.Port
		logrus.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "store": cfg.StoreBackend}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logrus.Info("shutting down http server")
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logrus.Info("shutdown complete")
	return nil
}
