package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/video-hub/internal/cache"
	"github.com/pribylovaa/video-hub/internal/config"
	httpapi "github.com/pribylovaa/video-hub/internal/http"
	"github.com/pribylovaa/video-hub/internal/http/handlers"
	"github.com/pribylovaa/video-hub/internal/http/middleware"
	"github.com/pribylovaa/video-hub/internal/service"
	"github.com/pribylovaa/video-hub/internal/storage"
	vhminio "github.com/pribylovaa/video-hub/internal/storage/minio"
	vhmongo "github.com/pribylovaa/video-hub/internal/storage/mongo"
	vhpostgres "github.com/pribylovaa/video-hub/internal/storage/postgres"
	"github.com/pribylovaa/video-hub/internal/token"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// pinger — зависимость, доступность которой проверяет /healthz.
type pinger struct {
	name string
	ping func(ctx context.Context) error
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file (overrides CONFIG_PATH env)")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting video-hub", "env", cfg.Env, "storage_driver", cfg.Storage.Driver)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	var (
		closers []func()
		pingers []pinger
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(event string, err error) {
		log.Error(event, slog.String("err", err.Error()))
		closeAll()
		rootCancel()
		os.Exit(1)
	}

	// MongoDB: видео всегда, аккаунты — если драйвер mongo.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	mongoStore, err := vhmongo.New(dbCtx, cfg.Mongo.URL)
	dbCancel()
	if err != nil {
		fail("mongo_connect_failed", err)
	}
	closers = append(closers, func() { _ = mongoStore.Close(context.Background()) })
	pingers = append(pingers, pinger{"mongo", mongoStore.Ping})
	log.Info("mongo_connected")

	var accounts storage.AccountStorage = mongoStore
	if cfg.Storage.Driver == config.DriverPostgres {
		pgCtx, pgCancel := context.WithTimeout(rootCtx, 10*time.Second)
		pgStore, err := vhpostgres.New(pgCtx, cfg.Postgres.URL)
		pgCancel()
		if err != nil {
			fail("postgres_connect_failed", err)
		}
		closers = append(closers, pgStore.Close)
		pingers = append(pingers, pinger{"postgres", pgStore.Ping})
		accounts = pgStore
		log.Info("postgres_connected")
	}

	s3Ctx, s3Cancel := context.WithTimeout(rootCtx, 10*time.Second)
	media, err := vhminio.New(s3Ctx, cfg.S3)
	s3Cancel()
	if err != nil {
		fail("s3_connect_failed", err)
	}
	pingers = append(pingers, pinger{"s3", media.Ping})
	log.Info("s3_connected", "bucket", cfg.S3.Bucket)

	codec := token.New(cfg.Auth)

	var sessionOpts []service.SessionOption
	if cfg.Redis.URL != "" {
		rCtx, rCancel := context.WithTimeout(rootCtx, 5*time.Second)
		limiter, err := cache.NewRedisLimiter(rCtx, cfg.Redis.URL, "", cfg.Redis.LoginAttempts, cfg.Redis.LoginWindow)
		rCancel()
		if err != nil {
			fail("redis_connect_failed", err)
		}
		closers = append(closers, func() { _ = limiter.Close() })
		pingers = append(pingers, pinger{"redis", limiter.Ping})
		sessionOpts = append(sessionOpts, service.WithLoginLimiter(limiter))
		log.Info("redis_connected", "login_attempts", cfg.Redis.LoginAttempts, "login_window", cfg.Redis.LoginWindow)
	} else {
		log.Warn("login_limiter_disabled")
	}

	if cfg.Auth.CookieInsecure && cfg.Env == envProd {
		log.Warn("insecure_cookies_in_prod")
	}

	h := &handlers.Handlers{
		Sessions:       service.NewSessionManager(accounts, codec, sessionOpts...),
		Accounts:       service.NewAccounts(accounts, media, cfg.Media),
		Videos:         service.NewVideos(mongoStore, accounts, media, cfg.Media, cfg.Limits),
		Cookies:        handlers.Cookies{Secure: !cfg.Auth.CookieInsecure},
		MaxUploadBytes: cfg.Media.MaxVideoBytes + cfg.Media.MaxImageBytes + 1<<20,
	}
	log.Info("service_initialized")

	api := httpapi.NewRouter(h, service.NewAuthenticator(accounts, codec), httpapi.Options{
		Logger:        log,
		Timeout:       cfg.Timeouts.Service,
		UploadTimeout: cfg.Timeouts.Upload,
		BasePath:      cfg.HTTP.BasePath,
		Metrics:       middleware.NewMetrics(prometheus.DefaultRegisterer),
	})

	// HTTP readiness/liveness/metrics + API.
	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, p := range pingers {
			if err := p.ping(ctx); err != nil {
				log.Warn("readiness_check_failed", "dependency", p.name, "err", err)
				http.Error(w, p.name+" unavailable", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", "addr", httpSrv.Addr, "base_path", cfg.HTTP.BasePath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	}
	shutdownCancel()

	closeAll()
	log.Info("service_stopped")
}

// setupLogger: text для local, JSON для dev/prod; debug везде, кроме prod.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
