package domain

import (
	"context"
	"time"
)

// TwitterGateway описывает операции платформы X, которые нужны боту.
type TwitterGateway interface {
	// Me возвращает учётную запись, от имени которой работает бот.
	Me(ctx context.Context) (Account, error)
	// FetchTimeline выгружает домашнюю ленту для генерации контента.
	FetchTimeline(ctx context.Context, max int) ([]Post, error)
	// FetchMentions выгружает упоминания бота начиная с указанного момента.
	FetchMentions(ctx context.Context, userID string, since time.Time) ([]Post, error)
	// FetchConversation выгружает все посты беседы одним запросом.
	FetchConversation(ctx context.Context, conversationID string) ([]Post, error)
	// CreatePost публикует твит и возвращает присвоенный платформой ID.
	CreatePost(ctx context.Context, text, inReplyToID, quoteTweetID string) (string, error)
}

// TweetRepo управляет локальным хранилищем постов, ключ — ID поста.
type TweetRepo interface {
	UpsertPost(ctx context.Context, post Post) error
	ListAllPosts(ctx context.Context) ([]Post, error)
}

// Generator строит черновики постов по таймлайну и типу действия.
// Обязан вернуть хотя бы один черновик либо ошибку.
type Generator interface {
	Generate(ctx context.Context, timeline []Post, action Action, conversationContext string) (Thread, error)
}

// ToneAdjuster переписывает готовую цепочку, сохраняя число черновиков.
type ToneAdjuster interface {
	AdjustTone(ctx context.Context, thread Thread) (Thread, error)
}

// SpamClassifier оценивает один пост на спам по лексическим эвристикам.
type SpamClassifier interface {
	IsSpam(post Post) bool
}

// MarketData отдаёт рыночный срез для маркет-аналитических постов.
type MarketData interface {
	Snapshot(ctx context.Context) (MarketSnapshot, error)
}

// Cache используется для простых TTL-хранилищ: курсор упоминаний и
// идемпотентность ответов.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
