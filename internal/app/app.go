package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/academy-checkout/internal/domain/auth"
	"github.com/xenking/academy-checkout/internal/domain/discount"
	"github.com/xenking/academy-checkout/internal/domain/order"
	"github.com/xenking/academy-checkout/internal/domain/payment"
	"github.com/xenking/academy-checkout/internal/gateway"
	"github.com/xenking/academy-checkout/internal/handler"
	"github.com/xenking/academy-checkout/internal/notify"
	"github.com/xenking/academy-checkout/internal/repository"
	"github.com/xenking/academy-checkout/pkg/health"
	"github.com/xenking/academy-checkout/pkg/httpmiddleware"
)

const serviceName = "academy-checkout"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("gateway", cfg.Gateway.Mode),
		zap.Strings("kafka.brokers", cfg.Kafka.Brokers),
	)

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Order notifications. The notifier outlives the server so that orders
	// accepted while draining are still published.
	var (
		notifier  order.Notifier = notify.Nop{}
		publisher *notify.KafkaNotifier
	)
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = notify.NewKafkaNotifier(
			notify.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic),
			notify.Options{
				QueueSize:    cfg.Kafka.QueueSize,
				WriteTimeout: cfg.Kafka.WriteTimeout,
				Logger:       lg.Named("notify"),
			},
		)
		notifier = publisher
		healthSvc.AddReadinessCheck("kafka", 5*time.Second, health.KafkaCheck(cfg.Kafka.Brokers))
	}

	gateways, err := newGateways(cfg.Gateway)
	if err != nil {
		return err
	}

	router, err := newRouter(pool, []byte(cfg.APIKeyPepper), gateways, notifier, m.MeterProvider())
	if err != nil {
		return err
	}
	router.Get("/livez", healthSvc.LiveEndpoint)
	router.Get("/readyz", healthSvc.ReadyEndpoint)

	limiter := httpmiddleware.NewLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Gateway.Timeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.HeaderAPIKey},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWith(limiter, nil),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.Instrument(serviceName, m),
		),
	}

	notifyCtx, stopNotify := context.WithCancel(context.WithoutCancel(ctx))
	defer stopNotify()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, 10*time.Second)
	})
	if cfg.RateLimit.Max > 0 {
		g.Go(func() error {
			limiter.RunSweeper(gctx)
			return nil
		})
	}
	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(notifyCtx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		defer stopNotify()

		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	err = g.Wait()
	if publisher != nil {
		if cerr := publisher.Close(); cerr != nil {
			lg.Warn("Close notifier", zap.Error(cerr))
		}
	}
	return err
}

// newRouter wires repositories, services and the API handler on a chi router
// that already carries the route-aware middlewares.
func newRouter(
	pool *pgxpool.Pool,
	pepper []byte,
	gateways payment.Gateways,
	notifier order.Notifier,
	mp metric.MeterProvider,
) (chi.Router, error) {
	courseRepo := repository.NewCourseRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	tx := repository.NewTransactor(pool)

	discountSvc := discount.NewService(repository.NewDiscountRepository(pool))
	orderSvc := order.NewService(courseRepo, discountSvc, orderRepo, tx, notifier)
	paymentSvc := payment.NewService(orderRepo, repository.NewPaymentRepository(pool), gateways, tx)

	h, err := handler.New(handler.Deps{
		Courses:   courseRepo,
		Orders:    orderSvc,
		Payments:  paymentSvc,
		Discounts: discountSvc,
		Resolver:  auth.NewKeyResolver(repository.NewAPIKeyRepository(pool), pepper),
	}, mp)
	if err != nil {
		return nil, errors.Wrap(err, "create handler")
	}

	router := chi.NewRouter()
	router.Use(httpmiddleware.LogRequests(), httpmiddleware.Labeler())
	h.Register(router)
	return router, nil
}

// newGateways registers the configured gateway for every payment method.
func newGateways(cfg GatewayConfig) (*gateway.Registry, error) {
	var gw payment.Gateway
	switch cfg.Mode {
	case GatewaySandbox:
		gw = gateway.Sandbox{}
	case GatewayHTTP:
		gw = gateway.NewHTTPGateway(cfg.URL, cfg.Timeout, nil)
	default:
		return nil, errors.Errorf("unknown gateway mode %q", cfg.Mode)
	}

	reg := gateway.NewRegistry()
	for _, m := range payment.Methods {
		reg.Register(m, gw)
	}
	return reg, nil
}
