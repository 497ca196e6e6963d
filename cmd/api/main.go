package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"nate-bot/internal/adapters/repo"
	"nate-bot/internal/adapters/spam"
	"nate-bot/internal/adapters/twitter"
	"nate-bot/internal/domain"
	"nate-bot/internal/infra/config"
	"nate-bot/internal/infra/db"
	"nate-bot/internal/infra/httpapi"
	applog "nate-bot/internal/infra/log"
	"nate-bot/internal/infra/metrics"
	"nate-bot/internal/infra/queue"
	"nate-bot/internal/usecase/engage"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tweetRepo, closeRepo := buildStorage(ctx, cfg, logger)
	defer closeRepo()

	jobQueue := buildQueue(cfg, logger)

	gateway := twitter.NewClient(cfg.Twitter.BearerToken, cfg.Twitter.BaseURL, cfg.Twitter.Timeout, cfg.Twitter.RPS)
	assembler := engage.NewAssembler(gateway, nil, spam.NewClassifier(), logger)

	srv := httpapi.NewServer(logger.With().Str("component", "api").Logger())

	srv.Router.Get("/api/v1/posts/recent", func(w http.ResponseWriter, r *http.Request) {
		posts, err := tweetRepo.ListAllPosts(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: чтение постов")
			httpapi.WriteError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}
		if len(posts) > limit {
			posts = posts[len(posts)-limit:]
		}
		httpapi.WriteJSON(w, map[string]any{"posts": posts})
	})

	// Беседы, ожидающие ответа, по локальной истории. Упоминания не
	// выгружаются: эндпоинт диагностический и не должен тратить квоту API.
	srv.Router.Get("/api/v1/conversations/pending", func(w http.ResponseWriter, r *http.Request) {
		account, err := gateway.Me(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: учётная запись бота")
			httpapi.WriteError(w, http.StatusBadGateway, "failed to resolve bot account")
			return
		}
		posts, err := tweetRepo.ListAllPosts(r.Context())
		if err != nil {
			logger.Error().Err(err).Msg("api: чтение постов")
			httpapi.WriteError(w, http.StatusInternalServerError, "failed to list posts")
			return
		}
		set := assembler.Assemble(r.Context(), nil, posts, account.Username, false)
		pending := engage.Pending(set, logger)

		type convSummary struct {
			ID           string    `json:"conversation_id"`
			Posts        int       `json:"posts"`
			Participants int       `json:"participants"`
			LastPostTime time.Time `json:"last_post_time"`
		}
		out := make([]convSummary, 0, len(pending.Order))
		for _, id := range pending.Order {
			conv := pending.Items[id]
			out = append(out, convSummary{
				ID:           conv.ID,
				Posts:        len(conv.Posts),
				Participants: len(conv.Participants),
				LastPostTime: conv.LastPostTime,
			})
		}
		httpapi.WriteJSON(w, map[string]any{"conversations": out})
	})

	srv.Router.Post("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpapi.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		action := domain.Action(req.Action)
		switch action {
		case domain.ActionSingle, domain.ActionThread, domain.ActionReply:
		default:
			httpapi.WriteError(w, http.StatusBadRequest, "action must be one of: single, thread, reply")
			return
		}
		job := domain.PostJob{
			ID:          uuid.NewString(),
			Action:      action,
			DryRun:      req.DryRun,
			RequestedAt: time.Now().UTC(),
			Cause:       domain.PostCauseManual,
		}
		if err := jobQueue.Enqueue(r.Context(), job); err != nil {
			logger.Error().Err(err).Msg("api: постановка задачи")
			httpapi.WriteError(w, http.StatusInternalServerError, "failed to enqueue job")
			return
		}
		w.WriteHeader(http.StatusAccepted)
		httpapi.WriteJSON(w, map[string]string{"job_id": job.ID})
	})

	go func() {
		if err := srv.Start(cfg.APIAddr); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api: сервер остановлен")
		}
	}()
	<-ctx.Done()
	logger.Info().Msg("api: остановка")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

type createJobRequest struct {
	Action string `json:"action"`
	DryRun bool   `json:"dry_run"`
}

func buildStorage(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.TweetRepo, func()) {
	switch cfg.Storage.Driver {
	case "sqlite":
		store, err := repo.NewSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось открыть SQLite")
		}
		return store, func() { _ = store.Close() }
	case "postgres":
		pool, err := db.Connect(cfg.Storage.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: нет подключения к БД")
		}
		store := repo.NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось подготовить схему")
		}
		return store, pool.Close
	default:
		logger.Fatal().Str("driver", cfg.Storage.Driver).Msg("api: неизвестный драйвер хранилища")
		return nil, nil
	}
}

func buildQueue(cfg config.AppConfig, logger zerolog.Logger) domain.JobQueue {
	switch cfg.Queue.Driver {
	case "rabbitmq":
		q, err := queue.NewRabbitPostQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: не удалось инициализировать очередь RabbitMQ")
		}
		return q
	case "redis":
		if cfg.RedisAddr == "" {
			logger.Fatal().Msg("api: очередь redis требует REDIS_ADDR")
		}
		return queue.NewRedisPostQueue(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}), cfg.Queue.Key)
	default:
		logger.Fatal().Str("driver", cfg.Queue.Driver).Msg("api: неизвестный драйвер очереди")
		return nil
	}
}
