package app

import (
	"context"
	"fmt"
	"time"

	"talentmatch/internal/ai/gemini"
	"talentmatch/internal/config"
	"talentmatch/internal/database"
	dbpostgres "talentmatch/internal/database/postgres"
	"talentmatch/internal/document"
	"talentmatch/internal/infrastructure/cache"
	"talentmatch/internal/queue"
	"talentmatch/internal/repository"
	"talentmatch/internal/usecase"
	"talentmatch/internal/worker"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container wires the pipeline together: storage, cache, queue broker,
// model client, workers, and the usecases on top of them.
type Container struct {
	Config config.Config
	Logger *zap.Logger
	DB     database.DB
	Cache  *cache.Redis
	Broker queue.Broker

	Matches repository.MatchRepository
	Resumes repository.ResumeRepository
	Jobs    repository.JobRepository

	MatchWorker *worker.MatchWorker
	BatchWorker *worker.BatchWorker

	MatchUsecase     *usecase.MatchUsecase
	ApplicantUsecase *usecase.SubmittedResumeUsecase
	JobUsecase       *usecase.JobUsecase
	Recommendations  *usecase.RecommendationUsecase

	redisClient *redis.Client
}

func NewContainer(cfg config.Config, logger *zap.Logger) (*Container, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	geminiClient, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
	if err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	resultCache := cache.NewRedis(cfg.Redis, logger)
	broker := queue.NewRedisBroker(redisClient, logger)
	parser := document.NewParser()

	matches := repository.NewPostgresMatchRepository(db)
	resumes := repository.NewPostgresResumeRepository(db)
	jobs := repository.NewPostgresJobRepository(db)

	c := &Container{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Cache:  resultCache,
		Broker: broker,

		Matches: matches,
		Resumes: resumes,
		Jobs:    jobs,

		MatchWorker: worker.NewMatchWorker(matches, resumes, jobs, geminiClient, parser, logger),
		BatchWorker: worker.NewBatchWorker(resumes, jobs, geminiClient, parser, logger),

		MatchUsecase:     usecase.NewMatchUsecase(broker, matches, cfg.Queue, logger),
		ApplicantUsecase: usecase.NewSubmittedResumeUsecase(resumes, jobs, broker, resultCache, cfg.Queue, logger),
		JobUsecase:       usecase.NewJobUsecase(jobs, resultCache, logger),
		Recommendations:  usecase.NewRecommendationUsecase(resumes, jobs, geminiClient, logger),

		redisClient: redisClient,
	}
	return c, nil
}

// StartWorkers begins consuming both queues with the configured
// concurrency. Consumers stop when ctx is canceled.
func (c *Container) StartWorkers(ctx context.Context) error {
	if err := c.Broker.Consume(ctx, worker.QueueMatchJob, c.Config.Queue.Concurrency, c.MatchWorker.Handle); err != nil {
		return fmt.Errorf("start match consumers: %w", err)
	}
	if err := c.Broker.Consume(ctx, worker.QueueMatchResume, c.Config.Queue.Concurrency, c.BatchWorker.Handle); err != nil {
		return fmt.Errorf("start batch consumers: %w", err)
	}
	return nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if c.Broker != nil {
		keep(c.Broker.Close())
	}
	if c.Cache != nil {
		keep(c.Cache.Close())
	}
	if c.redisClient != nil {
		keep(c.redisClient.Close())
	}
	if c.DB != nil {
		keep(c.DB.Close())
	}
	return firstErr
}
