package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xKurt/FlexStake/api"
	"github.com/0xKurt/FlexStake/config"
	"github.com/0xKurt/FlexStake/core/events"
	"github.com/0xKurt/FlexStake/core/types"
	"github.com/0xKurt/FlexStake/gateway/middleware"
	"github.com/0xKurt/FlexStake/native/staking"
	"github.com/0xKurt/FlexStake/observability/logging"
	"github.com/0xKurt/FlexStake/observability/metrics"
	"github.com/0xKurt/FlexStake/storage/stakestore"
)

const shutdownTimeout = 10 * time.Second

// fanoutEmitter forwards every event to all downstream emitters.
type fanoutEmitter []events.Emitter

func (f fanoutEmitter) Emit(evt events.Event) {
	for _, emitter := range f {
		emitter.Emit(evt)
	}
}

// auditEmitter writes every ledger event to the structured log so external
// indexers can tail the audit stream.
type auditEmitter struct {
	logger *slog.Logger
}

func (a auditEmitter) Emit(evt events.Event) {
	converter, ok := evt.(interface{ Event() *types.Event })
	if !ok {
		a.logger.Info("ledger event", "type", evt.EventType())
		return
	}
	record := converter.Event()
	if record == nil {
		return
	}
	args := make([]any, 0, 2+2*len(record.Attributes))
	args = append(args, "type", record.Type)
	for key, value := range record.Attributes {
		args = append(args, key, value)
	}
	a.logger.Info("ledger event", args...)
}

func main() {
	configPath := flag.String("config", "flexstake.toml", "path to the daemon configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("flexstaked", cfg.Environment)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "error", err)
		os.Exit(1)
	}
	store, err := stakestore.OpenLevelDB(filepath.Join(cfg.DataDir, "stakestore"))
	if err != nil {
		logger.Error("open stake store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	owner, ownerSet := cfg.Owner()
	if !ownerSet {
		logger.Warn("no owner configured; administrative operations will be rejected")
	}
	authorizer := staking.AuthorizerFunc(func(addr [20]byte) bool {
		return ownerSet && addr == owner
	})
	// Hook collaborators are registered in-process; a bare daemon runs
	// without any, so options referencing a hook are rejected at creation.
	hookResolver := staking.HookResolverFunc(func([20]byte) (staking.Hook, bool) {
		return nil, false
	})

	emitter := fanoutEmitter{
		metrics.NewRecorder(),
		auditEmitter{logger: logger.With("component", "audit")},
	}

	registry := staking.NewRegistry(store)
	registry.SetAuthorizer(authorizer)
	registry.SetHookResolver(hookResolver)
	registry.SetEmitter(emitter)

	engine := staking.NewEngine()
	engine.SetState(store)
	engine.SetAuthorizer(authorizer)
	engine.SetHookResolver(hookResolver)
	engine.SetEmitter(emitter)

	authenticator := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.AuthEnabled,
		HMACSecret: cfg.AuthSecret,
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
	}, logger.With("component", "auth"))
	limiter := middleware.NewRateLimiter(map[string]middleware.RateLimit{
		"query": {RequestsPerMinute: cfg.QueryRatePerMinute, Burst: cfg.QueryRateBurst},
		"tx":    {RequestsPerMinute: cfg.TxRatePerMinute, Burst: cfg.TxRateBurst},
	})

	root := chi.NewRouter()
	root.Handle("/metrics", promhttp.Handler())
	root.Mount("/", api.New(api.Config{
		Engine:        engine,
		Registry:      registry,
		Logger:        logger.With("component", "api"),
		Authenticator: authenticator,
		RateLimiter:   limiter,
	}))

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("flexstake daemon listening", "address", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down flexstake daemon")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
