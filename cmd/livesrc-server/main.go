package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/edirooss/livesrc/internal/category"
	"github.com/edirooss/livesrc/internal/checker"
	"github.com/edirooss/livesrc/internal/config"
	"github.com/edirooss/livesrc/internal/domain/catalog"
	"github.com/edirooss/livesrc/internal/http/handler"
	mw "github.com/edirooss/livesrc/internal/http/middleware"
	"github.com/edirooss/livesrc/internal/infrastructure/tasklog"
	"github.com/edirooss/livesrc/internal/probe"
	"github.com/edirooss/livesrc/internal/redis"
	"github.com/edirooss/livesrc/internal/service"
	"github.com/edirooss/livesrc/internal/task"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "server config file")
	showVersion := flag.Bool("v", false, "print version and exit")
	flag.BoolVar(showVersion, "version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("livesrc-server %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildDate)
		os.Exit(0)
	}

	// Read env
	isDev := os.Getenv("ENV") == "dev"

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := buildLogger(isDev)
	defer log.Sync()
	log = log.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Category tables
	var tables *category.Tables
	if cfg.Categories != "" {
		tables, err = category.Load(cfg.Categories)
		if err != nil {
			log.Fatal("category tables load failed", zap.String("path", cfg.Categories), zap.Error(err))
		}
		log.Info("category tables loaded", zap.String("path", cfg.Categories))
	}

	// Task registry, optionally mirrored to Redis
	var sink task.Sink
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(log, cfg.Redis.Options())
		defer rdb.Close()
		mirror := redis.NewTaskMirror(log, rdb, cfg.Redis.TaskTTL)
		defer mirror.Close()
		sink = mirror
	}
	tasks := task.NewRegistry(sink)

	// Probing
	fetcher := probe.NewHTTPFetcher(log, nil, cfg.Probe.HTTPOptions())
	var prober probe.ResolutionProber
	if !cfg.Probe.DisableFFProbe {
		prober = probe.NewFFProbe(log, cfg.Probe.FFProbePath, cfg.Probe.FFProbeTimeout)
	}

	cat := catalog.New()
	logs := tasklog.NewManager()
	chk := checker.New(log, cat, fetcher, prober, tables, logs, cfg.Checker.Options())
	livesvc := service.NewLiveService(ctx, log, cat, tasks, logs, chk, fetcher, tables, cfg.Live.Options())

	// Create Gin router
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()
	r := gin.New()
	{
		r.Use(gin.Recovery())
		r.Use(mw.RequestID())

		if isDev {
			r.Use(cors.New(cors.Config{
				AllowOrigins:  append([]string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSOrigins...),
				AllowMethods:  []string{"GET", "POST", "OPTIONS"},
				AllowHeaders:  []string{"X-Request-ID", "Content-Type"},
				ExposeHeaders: []string{"X-Request-ID", "X-Total-Count"},
				MaxAge:        12 * time.Hour,
			}))
		} else {
			if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
				log.Fatal("trusted proxies", zap.Error(err))
			}
			r.Use(secure.New(secure.Config{
				SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
				ContentTypeNosniff: true,
				FrameDeny:          true,
			}))
		}

		r.Use(mw.AccessLog(log.Named("http")))
		r.Use(mw.MaxBody(cfg.MaxBodyBytes))
	}

	handler.Register(r.Group("/api"),
		handler.NewLiveHandler(log, livesvc),
		handler.NewTasksHandler(livesvc),
		cfg.ProbeLimit)

	httpsrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           r,
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a single-URL probe may take the whole probe timeout
		WriteTimeout:   cfg.Checker.ProbeTimeout + 15*time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpsrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown", zap.Error(err))
		}
	}()

	log.Info("running HTTP server", zap.String("addr", httpsrv.Addr), zap.String("version", config.Version))
	if err := httpsrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}

	// background jobs see the cancelled context and stop scheduling probes
	livesvc.Wait()
	log.Info("server closed")
}

func buildLogger(isDev bool) *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	if isDev {
		logConfig.Level.SetLevel(zap.DebugLevel)
	} else {
		logConfig.Level.SetLevel(zap.InfoLevel)
	}
	return zap.Must(logConfig.Build())
}
