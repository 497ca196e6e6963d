package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
)

// Postgres реализует domain.TweetRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.TweetRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу твитов, если её ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tweets (
    tweet_id         TEXT PRIMARY KEY,
    text             TEXT NOT NULL,
    author_id        TEXT,
    author_username  TEXT,
    conversation_id  TEXT,
    in_reply_to_id   TEXT,
    quote_tweet_id   TEXT,
    created_at       TIMESTAMPTZ NOT NULL,
    fetched_for_user TEXT
);
CREATE INDEX IF NOT EXISTS idx_tweets_conversation ON tweets(conversation_id);
`)
	if err != nil {
		return fmt.Errorf("создание схемы: %w", err)
	}
	return nil
}

// UpsertPost сохраняет пост; повторная запись по тому же ID обновляет поля.
func (p *Postgres) UpsertPost(ctx context.Context, post domain.Post) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO tweets (tweet_id, text, author_id, author_username, conversation_id, in_reply_to_id, quote_tweet_id, created_at, fetched_for_user)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (tweet_id) DO UPDATE SET
    text = EXCLUDED.text,
    author_id = EXCLUDED.author_id,
    author_username = EXCLUDED.author_username,
    conversation_id = EXCLUDED.conversation_id,
    in_reply_to_id = EXCLUDED.in_reply_to_id,
    quote_tweet_id = EXCLUDED.quote_tweet_id,
    fetched_for_user = COALESCE(NULLIF(EXCLUDED.fetched_for_user, ''), tweets.fetched_for_user)
`, post.ID, post.Text, nullable(post.AuthorID), nullable(post.AuthorUsername), nullable(post.ConversationID),
		nullable(post.InReplyToID), nullable(post.QuoteTweetID), post.CreatedAt, nullable(post.FetchedForUser))
	metrics.ObserveNetworkRequest("postgres", "upsert_post", "tweets", start, err)
	if err != nil {
		return fmt.Errorf("сохранение поста: %w", err)
	}
	return nil
}

// ListAllPosts возвращает все локально сохранённые посты.
func (p *Postgres) ListAllPosts(ctx context.Context) ([]domain.Post, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT tweet_id, text, author_id, author_username, conversation_id, in_reply_to_id, quote_tweet_id, created_at, fetched_for_user
FROM tweets
ORDER BY created_at
`)
	metrics.ObserveNetworkRequest("postgres", "list_posts", "tweets", start, err)
	if err != nil {
		return nil, fmt.Errorf("выборка постов: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var post domain.Post
		var authorID, username, convID, replyTo, quoteID, fetchedFor sql.NullString
		if err := rows.Scan(&post.ID, &post.Text, &authorID, &username, &convID, &replyTo, &quoteID, &post.CreatedAt, &fetchedFor); err != nil {
			return nil, fmt.Errorf("чтение строки: %w", err)
		}
		post.AuthorID = authorID.String
		post.AuthorUsername = username.String
		post.ConversationID = convID.String
		post.InReplyToID = replyTo.String
		post.QuoteTweetID = quoteID.String
		post.FetchedForUser = fetchedFor.String
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("обход строк: %w", err)
	}
	return posts, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
