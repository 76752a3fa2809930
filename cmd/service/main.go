package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/oscarho2/giglink-identity/internal/cache"
	memcache "github.com/oscarho2/giglink-identity/internal/cache/memory"
	rediscache "github.com/oscarho2/giglink-identity/internal/cache/redis"
	"github.com/oscarho2/giglink-identity/internal/config"
	"github.com/oscarho2/giglink-identity/internal/email"
	authctrl "github.com/oscarho2/giglink-identity/internal/http/controllers/auth"
	healthctrl "github.com/oscarho2/giglink-identity/internal/http/controllers/health"
	router "github.com/oscarho2/giglink-identity/internal/http/router"
	authsvc "github.com/oscarho2/giglink-identity/internal/http/services/auth"
	healthsvc "github.com/oscarho2/giglink-identity/internal/http/services/health"
	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/linktoken"
	"github.com/oscarho2/giglink-identity/internal/identity/provider"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/apple"
	"github.com/oscarho2/giglink-identity/internal/identity/provider/google"
	"github.com/oscarho2/giglink-identity/internal/identity/resolver"
	"github.com/oscarho2/giglink-identity/internal/metrics"
	"github.com/oscarho2/giglink-identity/internal/observability/logger"
	"github.com/oscarho2/giglink-identity/internal/rate"
	"github.com/oscarho2/giglink-identity/internal/session"
	"github.com/oscarho2/giglink-identity/internal/store"

	// Drivers de persistencia: el binario elige importándolos.
	_ "github.com/oscarho2/giglink-identity/internal/store/memory"
	_ "github.com/oscarho2/giglink-identity/internal/store/mongo"
	_ "github.com/oscarho2/giglink-identity/internal/store/pg"
)

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
	)
	flag.Parse()

	if *flagEnvFile != "" && fileExists(*flagEnvFile) {
		if err := godotenv.Load(*flagEnvFile); err == nil {
			log.Printf("dotenv: cargado %s", *flagEnvFile)
		}
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" && fileExists("configs/config.yaml") {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "giglink-identity"})
	defer func() { _ = logger.Sync() }()
	logg := logger.L()

	if err := metrics.Register(nil); err != nil {
		logg.Fatal("metrics", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ─── Store ───
	storeCfg := store.Config{Driver: cfg.Storage.Driver}
	storeCfg.Mongo.URI = cfg.Storage.Mongo.URI
	storeCfg.Mongo.Database = cfg.Storage.Mongo.Database
	storeCfg.Postgres.DSN = cfg.Storage.Postgres.DSN
	storeCfg.Postgres.Migrate = cfg.Storage.Postgres.Migrate

	accounts, err := store.Open(ctx, storeCfg)
	if err != nil {
		logg.Fatal("store", logger.Err(err))
	}
	defer func() { _ = accounts.Close(context.Background()) }()
	logg.Info("store ready", logger.String("driver", cfg.Storage.Driver))

	// ─── Cache + rate limiter ───
	var (
		limiter    rate.Limiter
		redisCheck func(context.Context) error
	)
	if cfg.Rate.Enabled {
		switch cfg.Cache.Kind {
		case "redis":
			rc := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
			defer func() { _ = rc.Close() }()
			redisCheck = rc.Ping
			limiter = rate.NewRedisLimiter(rc.Client(), cfg.Cache.Redis.Prefix, cfg.Rate.Limit, cfg.Rate.Window.D)
		default:
			var c cache.Cache = memcache.New(cfg.Rate.Window.D)
			limiter = rate.NewMemoryLimiter(c, "", cfg.Rate.Limit, cfg.Rate.Window.D)
		}
	}

	// ─── Tokens ───
	secret := []byte(cfg.Session.Secret)
	sessions := session.NewIssuer(secret, cfg.Session.Issuer, cfg.Session.TTL.D)
	links := linktoken.NewIssuer(secret, cfg.Session.Issuer, cfg.Link.TTL.D)

	// ─── Providers ───
	registry := provider.NewRegistry()
	public := make(map[identity.Provider]authsvc.ProviderPublicConfig)

	if cfg.Providers.Google.Enabled {
		registry.Register(identity.ProviderGoogle, google.New(cfg.Providers.Google.ClientIDs, google.Options{}))
		public[identity.ProviderGoogle] = authsvc.ProviderPublicConfig{
			Enabled:     true,
			ClientIDs:   cfg.Providers.Google.ClientIDs,
			RedirectURI: cfg.Providers.Google.RedirectURI,
		}
		logg.Info("provider enabled", logger.Provider("google"))
	}

	if cfg.Providers.Apple.Enabled {
		pemBytes, err := os.ReadFile(cfg.Providers.Apple.PrivateKeyPath)
		if err != nil {
			logg.Fatal("apple private key", logger.Err(err))
		}
		key, err := apple.ParsePrivateKey(pemBytes)
		if err != nil {
			logg.Fatal("apple private key", logger.Err(err))
		}
		registry.Register(identity.ProviderApple, apple.New(apple.Config{
			ClientIDs:  cfg.Providers.Apple.ClientIDs,
			TeamID:     cfg.Providers.Apple.TeamID,
			KeyID:      cfg.Providers.Apple.KeyID,
			PrivateKey: key,
		}, apple.Options{}))
		public[identity.ProviderApple] = authsvc.ProviderPublicConfig{
			Enabled:     true,
			ClientIDs:   cfg.Providers.Apple.ClientIDs,
			RedirectURI: cfg.Providers.Apple.RedirectURI,
		}
		logg.Info("provider enabled", logger.Provider("apple"))
	}

	// ─── Email (aviso de seguridad; noop sin SMTP) ───
	var notifier email.Notifier = email.Noop{}
	if strings.TrimSpace(cfg.SMTP.Host) != "" {
		sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		if cfg.SMTP.TLS != "" {
			sender.TLSMode = cfg.SMTP.TLS
		}
		sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		notifier = email.NewSecurityNotifier(sender, "GigLink")
	}

	// ─── Wiring ───
	services := authsvc.NewServices(authsvc.Deps{
		Registry:     registry,
		Resolver:     resolver.New(accounts, links),
		Sessions:     sessions,
		Notifier:     notifier,
		LinkTTL:      cfg.Link.TTL.D,
		PublicConfig: public,
	})

	handler := router.New(router.Deps{
		Auth: authctrl.NewControllers(services),
		Health: healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{
			StoreCheck: accounts.Ping,
			RedisCheck: redisCheck,
		})),
		Sessions:    sessions,
		RateLimiter: limiter,
		CORSOrigins: cfg.Server.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("listening", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server", logger.Err(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", logger.Err(err))
	}
	logg.Info("stopped cleanly")
}
