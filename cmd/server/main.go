package main // Entry point package of calendar-server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // panic recovery

	"github.com/iliyamo/minimal-calendar/internal/config"     // environment configuration
	"github.com/iliyamo/minimal-calendar/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/minimal-calendar/internal/handler"    // HTTP handlers
	"github.com/iliyamo/minimal-calendar/internal/jobs"       // periodic maintenance
	"github.com/iliyamo/minimal-calendar/internal/logger"     // zerolog setup
	"github.com/iliyamo/minimal-calendar/internal/middleware" // rate limit, cache, request log
	"github.com/iliyamo/minimal-calendar/internal/queue"      // change notifications
	"github.com/iliyamo/minimal-calendar/internal/repository" // data access
	"github.com/iliyamo/minimal-calendar/internal/router"     // route registration
)

func main() {
	log := logger.New("calendar-server")

	cfg, err := config.Load() // Load environment config
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log = log.Level(logger.ParseLevel(cfg.LogLevel))

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	// Redis is optional: without it rate limiting and caching are off.
	redisCfg, err := config.LoadRedisConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("redis config")
	}
	rdb := config.NewRedisClient(redisCfg)
	if rdb == nil {
		log.Warn().Str("addr", redisCfg.Address()).Msg("redis unreachable, rate limiting and cache disabled")
	} else {
		defer rdb.Close()
	}

	generalLimit, err := config.LoadRateLimitConfig("RATE_LIMIT", config.DefaultRateLimit())
	if err != nil {
		log.Fatal().Err(err).Msg("rate limit config")
	}
	authLimit, err := config.LoadRateLimitConfig("AUTH_RATE_LIMIT", config.DefaultAuthRateLimit())
	if err != nil {
		log.Fatal().Err(err).Msg("auth rate limit config")
	}
	cacheCfg, err := config.LoadCacheConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("cache config")
	}
	cache := middleware.NewUserCache(cacheCfg, rdb, log)

	pub := queue.NewPublisher(cfg.RabbitURL, cfg.ChangesQueue, log)
	if pub.Enabled() {
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Queue: cfg.ChangesQueue, LogPath: cfg.ChangesLog, Log: log}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("change consumer stopped")
			}
		}()
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	events := repository.NewEventRepo(db)

	sched := jobs.NewScheduler(log)
	if err := sched.Add(cfg.PurgeSchedule, "purge-refresh-tokens", jobs.PurgeTokens(tokens, log)); err != nil {
		log.Fatal().Err(err).Msg("scheduler")
	}
	sched.Start()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.Metrics())
	e.Use(echomw.Recover())

	lim := router.Limits{
		Auth:    middleware.NewTokenBucket(authLimit, rdb, log),
		General: middleware.NewTokenBucket(generalLimit, rdb, log),
	}
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, pub, log), cfg.JWTSecret, lim)
	router.RegisterEvents(e, handler.NewEventHandler(events, cache, pub, log), cfg.JWTSecret, lim, cache)

	addr := ":" + cfg.Port // Address string with port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	sched.Stop(shutdownCtx)
	log.Info().Msg("bye")
}
