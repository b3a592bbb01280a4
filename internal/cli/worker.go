package cli

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"capa-grader/internal/app"
	"capa-grader/internal/capa"
	"capa-grader/internal/config"
	"capa-grader/internal/infra/memory"
	pgstore "capa-grader/internal/infra/postgres"
	redisinfra "capa-grader/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewWorkerCmd builds the CLI subcommand that consumes grader replies.
func NewWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume external grader replies and apply scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), *configPath)
		},
	}
}

func runWorker(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" {
		return errors.New("redis addr not configured; the worker needs the reply queue")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	queue := redisinfra.NewQueue(redisClient)

	var loader memory.ProblemLoader = memory.NewStaticProblemLoader(nil)
	var state app.StateStore = redisinfra.NewStateStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 0))
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgstore.NewProblemLoader(pool)
		state = pgstore.NewStateStore(pool)
	}
	problems := memory.NewProblemRepository(loader, config.TTLDuration(cfg.Problem.TTL, 10*time.Minute))

	opts := []app.Option{}
	if cfg.Grading.Seed != 0 {
		opts = append(opts, app.WithSeed(cfg.Grading.Seed))
	}
	service := app.NewGradingService(problems, state, capa.QueueConfig{
		Submitter:   queue,
		CallbackURL: cfg.Queue.CallbackURL,
		DefaultName: cfg.Queue.Name,
	}, opts...)

	replyQueue := cfg.Queue.ReplyQueue
	if replyQueue == "" {
		replyQueue = cfg.Queue.Name + "-replies"
	}
	consumer := redisinfra.NewReplyConsumer(redisClient, replyQueue, service)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		log.Printf("consuming grader replies from %s", replyQueue)
		done <- consumer.Run(runCtx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down worker...")
		cancel()
	case <-ctx.Done():
		log.Println("context canceled, shutting down worker...")
	case err := <-done:
		return err
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
	return nil
}
