package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-game-service/internal/app"
	"trivia-game-service/internal/config"
	"trivia-game-service/internal/infra/memory"
	"trivia-game-service/internal/infra/postgres"
	redisstore "trivia-game-service/internal/infra/redis"
	"trivia-game-service/internal/metrics"
	"trivia-game-service/internal/offline"
	"trivia-game-service/internal/opentdb"
	transport "trivia-game-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, *logLevel)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag, levelFlag string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg, levelFlag)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	fetcher, err := newFetcher(cfg, pool, log, m)
	if err != nil {
		return err
	}

	categoriesTTL := config.TTLDuration(cfg.Categories.TTL, time.Hour)
	var categories app.CategoryRepository
	var games app.GameRepository
	if redisClient != nil {
		categories = redisstore.NewCategoryRepository(redisClient, app.CategoriesFrom(fetcher), categoriesTTL)
		games = redisstore.NewGameStore(redisClient, redisTTL)
	} else {
		categories = memory.NewCategoryRepository(app.CategoriesFrom(fetcher), categoriesTTL)
		games = memory.NewGameStore()
	}

	service := app.NewTriviaService(
		fetcher,
		games,
		categories,
		app.WithLogger(log),
		app.WithMetrics(m),
		app.WithHighscores(memory.NewHighscoreBoard()),
		app.WithMaxAmount(cfg.Game.MaxAmount),
	)
	router := transport.NewRouter(
		transport.NewGameHandler(service, log, cfg.Game.DefaultAmount),
		transport.NewRESTHandler(service, log),
		registry,
		cfg.Server.AllowedOrigins,
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": finalPort, "source": cfg.Source}).Info("starting trivia service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newFetcher(cfg config.Config, pool *pgxpool.Pool, log *logrus.Entry, m *metrics.Metrics) (app.TriviaFetcher, error) {
	switch cfg.Source {
	case config.SourceOffline:
		if pool == nil {
			return nil, fmt.Errorf("offline source needs a postgres question bank")
		}
		return offline.NewFetcher(postgres.NewQuestionBank(pool), offline.WithLogger(log), offline.WithMetrics(m)), nil
	default:
		return newOpenTDBClient(cfg, log, m)
	}
}

func newOpenTDBClient(cfg config.Config, log *logrus.Entry, m *metrics.Metrics) (*opentdb.Client, error) {
	timeout := config.TTLDuration(cfg.OpenTDB.Timeout, 10*time.Second)
	return opentdb.New(
		cfg.OpenTDB.BaseURL,
		opentdb.WithHTTPClient(&http.Client{Timeout: timeout}),
		opentdb.WithLogger(log),
		opentdb.WithMetrics(m),
	)
}
