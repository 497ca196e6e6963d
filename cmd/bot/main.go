package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nate-bot/internal/adapters/generator"
	"nate-bot/internal/adapters/market"
	"nate-bot/internal/adapters/repo"
	"nate-bot/internal/adapters/spam"
	"nate-bot/internal/adapters/twitter"
	"nate-bot/internal/domain"
	"nate-bot/internal/infra/cache"
	"nate-bot/internal/infra/config"
	"nate-bot/internal/infra/db"
	"nate-bot/internal/infra/httpapi"
	applog "nate-bot/internal/infra/log"
	"nate-bot/internal/infra/metrics"
	"nate-bot/internal/infra/openai"
	"nate-bot/internal/infra/queue"
	"nate-bot/internal/usecase/engage"
	"nate-bot/internal/usecase/publish"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.AppEnv}); err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось инициализировать Sentry")
		}
		defer sentry.Flush(2 * time.Second)
	}

	metricsSrv := httpapi.NewServer(logger.With().Str("component", "metrics").Logger())
	go func() {
		if err := metricsSrv.Start(cfg.MetricsAddr); err != nil {
			logger.Error().Err(err).Msg("bot: сервер метрик остановлен")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}()

	tweetRepo, closeRepo := buildStorage(ctx, cfg, logger)
	defer closeRepo()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	var appCache domain.Cache
	if redisClient != nil {
		appCache = cache.NewRedis(redisClient)
	} else {
		logger.Warn().Msg("bot: Redis не настроен, защита от повторных ответов отключена")
	}

	jobQueue := buildQueue(cfg, redisClient, logger)

	if cfg.Twitter.BearerToken == "" {
		logger.Fatal().Msg("bot: не указан токен платформы (X_BEARER_TOKEN)")
	}
	gateway := twitter.NewClient(cfg.Twitter.BearerToken, cfg.Twitter.BaseURL, cfg.Twitter.Timeout, cfg.Twitter.RPS)

	gen, tone := buildGenerator(ctx, cfg, logger)

	assembler := engage.NewAssembler(gateway, tweetRepo, spam.NewClassifier(), logger)
	publisher := publish.NewPublisher(gateway, logger)
	service := publish.NewService(
		gateway, tweetRepo, gen, tone, assembler, publisher, appCache, logger,
		cfg.Limits.TimelineMax, cfg.Limits.ThreadMax, cfg.FilterSpam,
	)

	logger.Info().Msg("bot: запуск обработки очереди задач")
	runWorker(ctx, jobQueue, service, logger)
	logger.Info().Msg("bot: остановлен")
}

func buildStorage(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.TweetRepo, func()) {
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := repo.NewSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось открыть SQLite")
		}
		return store, func() { _ = store.Close() }
	case "postgres":
		pool, err := db.Connect(cfg.Storage.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: нет подключения к БД")
		}
		store := repo.NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось подготовить схему")
		}
		return store, pool.Close
	default:
		logger.Fatal().Str("driver", cfg.Storage.Driver).Msg("bot: неизвестный драйвер хранилища")
		return nil, nil
	}
}

func buildQueue(cfg config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) domain.JobQueue {
	switch cfg.Queue.Driver {
	case "rabbitmq":
		q, err := queue.NewRabbitPostQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось инициализировать очередь RabbitMQ")
		}
		return q
	case "redis":
		if redisClient == nil {
			logger.Fatal().Msg("bot: очередь redis требует REDIS_ADDR")
		}
		return queue.NewRedisPostQueue(redisClient, cfg.Queue.Key)
	default:
		logger.Fatal().Str("driver", cfg.Queue.Driver).Msg("bot: неизвестный драйвер очереди")
		return nil
	}
}

// buildGenerator собирает генератор и, если настроено, агента тона.
// Провайдеры openai, openrouter и ollama различаются только базовым URL
// Chat Completions; gemini идёт через отдельный SDK.
func buildGenerator(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.Generator, domain.ToneAdjuster) {
	var marketData domain.MarketData
	if cfg.Generator.UseMarketData {
		marketData = market.NewCoinGecko("", 10*time.Second)
	}

	var chat *openai.Client
	switch cfg.Generator.Provider {
	case "openai":
		if cfg.Generator.OpenAIKey == "" {
			logger.Fatal().Msg("bot: не указан ключ OpenAI (OPENAI_API_KEY)")
		}
		chat = openai.NewClient(cfg.Generator.OpenAIKey, "https://api.openai.com/v1", cfg.Generator.Timeout)
	case "openrouter":
		if cfg.Generator.OpenRouterKey == "" {
			logger.Fatal().Msg("bot: не указан ключ OpenRouter (OPENROUTER_API_KEY)")
		}
		chat = openai.NewClient(cfg.Generator.OpenRouterKey, "https://openrouter.ai/api/v1", cfg.Generator.Timeout)
	case "ollama":
		chat = openai.NewClient("", cfg.Generator.OllamaBaseURL, cfg.Generator.Timeout)
	case "gemini":
		if cfg.Generator.GeminiKey == "" {
			logger.Fatal().Msg("bot: не указан ключ Gemini (GEMINI_API_KEY)")
		}
	default:
		logger.Fatal().Str("provider", cfg.Generator.Provider).Msg("bot: неизвестный провайдер генератора")
	}

	var gen domain.Generator
	if cfg.Generator.Provider == "gemini" {
		g, err := generator.NewGemini(ctx, cfg.Generator.GeminiKey, cfg.Generator.Model, cfg.Generator.Timeout)
		if err != nil {
			logger.Fatal().Err(err).Msg("bot: не удалось создать клиента Gemini")
		}
		gen = g
	} else {
		gen = generator.NewLLM(chat, cfg.Generator.Model, cfg.Generator.Timeout, marketData, logger)
	}

	var tone domain.ToneAdjuster
	if cfg.Generator.AdjustTone {
		if chat != nil {
			tone = generator.NewToneAgent(chat, cfg.Generator.Model, cfg.Generator.Timeout)
		} else {
			logger.Warn().Msg("bot: коррекция тона требует Chat Completions провайдера, отключена")
		}
	}
	return gen, tone
}

func runWorker(ctx context.Context, jobQueue domain.JobQueue, service *publish.Service, logger zerolog.Logger) {
	for {
		job, err := jobQueue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error().Err(err).Msg("bot: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		jobLog := logger.With().
			Str("job_id", job.ID).
			Str("action", string(job.Action)).
			Str("cause", string(job.Cause)).
			Bool("dry_run", job.DryRun).
			Logger()
		jobLog.Info().Msg("bot: задача принята")

		switch job.Action {
		case domain.ActionReply:
			err = service.ReplyCycle(ctx, job.DryRun)
		case domain.ActionSingle, domain.ActionThread:
			err = service.PostContent(ctx, job.Action, job.DryRun)
		default:
			jobLog.Error().Msg("bot: неизвестное действие, задача пропущена")
			continue
		}
		if err != nil {
			sentry.CaptureException(err)
			jobLog.Error().Err(err).Msg("bot: задача завершилась ошибкой")
			continue
		}
		jobLog.Info().Msg("bot: задача выполнена")
	}
}
