package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"debate-lab-service/internal/app"
	"debate-lab-service/internal/config"
	"debate-lab-service/internal/infra/memory"
	pgstore "debate-lab-service/internal/infra/postgres"
	redisstore "debate-lab-service/internal/infra/redis"
	"debate-lab-service/internal/llm"
	"debate-lab-service/internal/logging"
	transport "debate-lab-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		classRepo  app.ClassRepository  = memory.NewClassRepository()
		battleRepo app.BattleRepository = memory.NewBattleRepository()
	)
	if pool != nil {
		classRepo = pgstore.NewClassRepository(pool)
		battleRepo = pgstore.NewBattleRepository(pool)
	}

	classTTL := config.TTLDuration(cfg.Class.CacheTTL, 10*time.Minute)
	var (
		classCache app.ClassCache
		queue      app.QueueRepository
	)
	if redisClient != nil {
		classCache = redisstore.NewClassCache(redisClient, classRepo, classTTL)
		queue = redisstore.NewQueue(redisClient)
	} else {
		classCache = memory.NewClassCache(classRepo, classTTL)
		queue = memory.NewQueue()
	}

	if cfg.LLM.APIKey == "" {
		logging.Warn().Msg("LLM_API_KEY not set; topic, scoring and rebuttal requests will fail")
	}
	completer := llm.NewClient(llm.Options{
		BaseURL:         cfg.LLM.BaseURL,
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		MaxTokens:       cfg.LLM.MaxTokens,
		Timeout:         config.TTLDuration(cfg.LLM.Timeout, 60*time.Second),
		BreakerFailures: cfg.LLM.BreakerFailures,
		BreakerCooldown: config.TTLDuration(cfg.LLM.BreakerCooldown, 30*time.Second),
	})

	eval := app.NewEvalService(completer)
	classes := app.NewClassService(classRepo, classCache, battleRepo)
	battles := app.NewBattleService(queue, battleRepo, classCache, eval, app.NewBattleHub(), cfg.Battle.MaxRounds)

	if cfg.Auth.JWTSecret == "" {
		logging.Warn().Msg("AUTH_JWT_SECRET not set; token verification disabled, callers identified by X-User-Id/X-User-Role")
	}
	router := transport.NewRouter(transport.Options{
		Classes: classes,
		Battles: battles,
		Eval:    eval,
		Auth:    transport.AuthConfig{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.Issuer},
		RateLimit: transport.RateLimit{
			Requests: cfg.RateLimit.Requests,
			Window:   config.TTLDuration(cfg.RateLimit.Window, time.Minute),
		},
		TrustProxy: cfg.Server.TrustProxy,
	})

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// LLM calls dominate request time; websockets manage their own deadlines
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().
			Str("port", finalPort).
			Bool("redis", redisClient != nil).
			Bool("postgres", pool != nil).
			Msg("starting debate lab service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logging.Info().Msg("shutting down server")
	case <-ctx.Done():
		logging.Info().Msg("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
