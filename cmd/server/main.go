package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kevin07696/stkpush-service/internal/adapters/lipana"
	"github.com/kevin07696/stkpush-service/internal/adapters/memory"
	"github.com/kevin07696/stkpush-service/internal/adapters/postgres"
	"github.com/kevin07696/stkpush-service/internal/adapters/secrets"
	"github.com/kevin07696/stkpush-service/internal/adapters/tunnel"
	"github.com/kevin07696/stkpush-service/internal/config"
	"github.com/kevin07696/stkpush-service/internal/domain/ports"
	"github.com/kevin07696/stkpush-service/internal/handlers/stkpush"
	"github.com/kevin07696/stkpush-service/internal/middleware"
	"github.com/kevin07696/stkpush-service/internal/services/payment"
	"github.com/kevin07696/stkpush-service/internal/services/reconciliation"
	pkghttp "github.com/kevin07696/stkpush-service/pkg/http"
	pkgmiddleware "github.com/kevin07696/stkpush-service/pkg/middleware"
	"github.com/kevin07696/stkpush-service/pkg/observability"
	"github.com/kevin07696/stkpush-service/pkg/resilience"
	"github.com/kevin07696/stkpush-service/pkg/security"
	"github.com/kevin07696/stkpush-service/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer logger.Sync()

	logger.Info("Starting STK push service",
		zap.String("version", "0.1.0"),
		zap.String("environment", cfg.Logger.Environment),
	)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeouts := resilience.DefaultTimeoutConfig()
	timeouts.Initiate = cfg.Lipana.InitiateTimeout
	timeouts.StatusFetch = cfg.Lipana.StatusFetchTimeout

	source, err := initSecretSource(ctx, cfg.Secrets, logger)
	if err != nil {
		return err
	}
	creds, err := secrets.LoadProviderSecrets(ctx, source, secrets.ProviderSecretNames{
		APIKey:        cfg.Secrets.APIKeyName,
		WebhookSecret: cfg.Secrets.WebhookSecretName,
	}, logger)
	if err != nil {
		return err
	}

	healthChecker := observability.NewHealthChecker()
	shutdownMgr := shutdown.NewManager(logger)

	store, err := initStore(ctx, cfg, healthChecker, shutdownMgr, logger)
	if err != nil {
		return err
	}

	lipanaClient := initLipanaClient(cfg.Lipana, timeouts, creds.APIKey, logger)

	resolver := tunnel.NewResolver(tunnel.Config{
		PublicURL:     cfg.Tunnel.PublicURL,
		AgentURL:      cfg.Tunnel.AgentURL,
		LocalPort:     cfg.Server.Port,
		LookupTimeout: timeouts.TunnelLookup,
	}, pkghttp.NewHTTPClient(pkghttp.LocalAgentClientConfig(), 0), logger.Named("tunnel"))

	engine := reconciliation.NewEngine(store, lipanaClient, logger.Named("reconciliation"))
	initiator := payment.NewInitiator(payment.Config{
		MinAmount:   cfg.Payment.MinAmount,
		CountryCode: cfg.Payment.CountryCode,
		Currency:    cfg.Payment.Currency,
	}, lipanaClient, store, logger.Named("payment"))

	handler := stkpush.NewHandler(initiator, engine, resolver, creds.WebhookSecret, logger.Named("http"))

	mux := http.NewServeMux()
	handler.Register(mux)

	rateLimiter := pkgmiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.Server.TrustProxy, logger)
	shutdownMgr.RegisterNoErr("rate_limiter", rateLimiter.Shutdown)

	httpServer := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: pkgmiddleware.Chain(mux,
			pkgmiddleware.RequestID,
			pkgmiddleware.Logging(logger),
			pkgmiddleware.Recovery(logger),
			middleware.NewSecurityHeaders(!cfg.Logger.IsProduction()).Middleware,
			rateLimiter.Middleware,
			pkgmiddleware.Timeout(timeouts, logger),
			pkgmiddleware.Gzip(pkgmiddleware.DefaultGzipConfig(), logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      timeouts.HTTPHandler + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}
	metricsServer := observability.NewMetricsServer(strconv.Itoa(cfg.Server.MetricsPort), healthChecker)

	g, gctx := errgroup.WithContext(ctx)

	shutdownMgr.RegisterHTTPServer("metrics_server", metricsServer)
	g.Go(func() error {
		logger.Info("Metrics server listening", zap.Int("port", cfg.Server.MetricsPort))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	if cfg.Server.GRPCHealthPort > 0 {
		grpcServer, err := startGRPCHealth(g, cfg.Server.GRPCHealthPort, logger)
		if err != nil {
			return err
		}
		shutdownMgr.RegisterNoErr("grpc_health", grpcServer.GracefulStop)
	}

	shutdownMgr.RegisterHTTPServer("http_server", httpServer)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Runs first on shutdown: stop advertising readiness before closing listeners
	shutdownMgr.RegisterNoErr("readiness", func() { healthChecker.SetReady(false) })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down servers...")
		shutdownCtx, cancel := timeouts.ShutdownContext(context.Background())
		defer cancel()
		return shutdownMgr.Shutdown(shutdownCtx)
	})

	healthChecker.SetReady(true)
	logStartupBanner(gctx, cfg, resolver, logger)

	return g.Wait()
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	if cfg.IsProduction() {
		zapCfg := zap.NewProductionConfig()
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
		logger, err := zapCfg.Build()
		if err == nil {
			return logger
		}
	}

	logger, _ := zap.NewDevelopment()
	return logger
}

func initStore(ctx context.Context, cfg *config.Config, hc *observability.HealthChecker, mgr *shutdown.Manager, logger *zap.Logger) (ports.TransactionStore, error) {
	policy := cfg.Reconciliation.MergePolicy

	if cfg.Store.Backend != config.StoreBackendPostgres {
		logger.Info("Using in-memory transaction store; records are lost on restart",
			zap.String("merge_policy", string(policy)),
		)
		return memory.NewTransactionStore(policy), nil
	}

	db, err := postgres.Open(ctx, postgres.DefaultConfig(cfg.Store.DatabaseURL), logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	mgr.RegisterNoErr("postgres", db.Close)

	if err := db.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	hc.AddCheck("postgres", db.Ping)

	logger.Info("Using PostgreSQL transaction store",
		zap.String("merge_policy", string(policy)),
	)
	return postgres.NewTransactionStore(db, policy, logger.Named("store")), nil
}

func initLipanaClient(cfg config.LipanaConfig, timeouts *resilience.TimeoutConfig, apiKey string, logger *zap.Logger) *lipana.Client {
	breakerCfg := resilience.DefaultCircuitBreakerConfig("lipana")
	breakerCfg.IsFailure = lipana.IsProviderFailure
	breakerCfg.OnStateChange = func(name string, from, to resilience.CircuitState) {
		observability.SetCircuitBreakerState(name, int(to))
		logger.Warn("Circuit breaker state changed",
			zap.String("name", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	lipanaCfg := lipana.DefaultConfig(apiKey)
	lipanaCfg.BaseURL = cfg.BaseURL
	lipanaCfg.PageSize = cfg.PageSize
	lipanaCfg.MaxPages = cfg.MaxPages
	lipanaCfg.InitiateTimeout = timeouts.Initiate
	lipanaCfg.StatusFetchTimeout = timeouts.StatusFetch

	// Per-call deadlines come from the context, so the client has no overall timeout
	httpClient := pkghttp.NewHTTPClient(pkghttp.LipanaClientConfig(), 0)

	return lipana.NewClient(lipanaCfg, httpClient,
		resilience.NewCircuitBreaker(breakerCfg),
		security.NewZapLogger(logger).Named("lipana"))
}

func startGRPCHealth(g *errgroup.Group, port int, logger *zap.Logger) (*grpc.Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("listen grpc health: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			observability.UnaryServerInterceptor(),
			recoveryInterceptor(logger),
		),
	)
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	g.Go(func() error {
		logger.Info("gRPC health server listening", zap.String("address", listener.Addr().String()))
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc health server: %w", err)
		}
		return nil
	})
	return grpcServer, nil
}

func recoveryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic recovered in gRPC handler",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				err = fmt.Errorf("internal server error")
			}
		}()

		return handler(ctx, req)
	}
}

// logStartupBanner prints where to send customers and where Lipana should
// deliver webhooks
func logStartupBanner(ctx context.Context, cfg *config.Config, resolver *tunnel.Resolver, logger *zap.Logger) {
	local := fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	webhook := resolver.ResolveWebhookURL(ctx)

	logger.Info("Checkout endpoint", zap.String("url", local+"/pay"))
	logger.Info("Webhook endpoint",
		zap.String("url", webhook.URL),
		zap.String("source", webhook.Source),
		zap.Bool("reachable", webhook.Reachable),
	)
	if webhook.Warning != "" {
		logger.Warn("Webhook URL is not publicly reachable; Lipana cannot deliver notifications",
			zap.String("warning", webhook.Warning),
		)
	}
	logger.Info("Diagnostics",
		zap.String("webhook_info", local+"/webhook-info"),
		zap.String("metrics", fmt.Sprintf("http://localhost:%d/metrics", cfg.Server.MetricsPort)),
	)
}
