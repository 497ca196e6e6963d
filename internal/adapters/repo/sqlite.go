package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"nate-bot/internal/domain"
)

// SQLite реализует domain.TweetRepo на локальном файле. Профиль для
// разработки и для запуска без Postgres.
type SQLite struct {
	db *sql.DB
}

var _ domain.TweetRepo = (*SQLite)(nil)

// NewSQLite открывает файл БД и создаёт схему.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS tweets (
    tweet_id         TEXT PRIMARY KEY,
    text             TEXT NOT NULL,
    author_id        TEXT,
    author_username  TEXT,
    conversation_id  TEXT,
    in_reply_to_id   TEXT,
    quote_tweet_id   TEXT,
    created_at       DATETIME NOT NULL,
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
func (s *SQLite) UpsertPost(ctx context.Context, post domain.Post) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tweets (tweet_id, text, author_id, author_username, conversation_id, in_reply_to_id, quote_tweet_id, created_at, fetched_for_user)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(tweet_id) DO UPDATE SET
    text = excluded.text,
    author_id = excluded.author_id,
    author_username = excluded.author_username,
    conversation_id = excluded.conversation_id,
    in_reply_to_id = excluded.in_reply_to_id,
    quote_tweet_id = excluded.quote_tweet_id,
    fetched_for_user = CASE WHEN excluded.fetched_for_user != '' THEN excluded.fetched_for_user ELSE tweets.fetched_for_user END
`, post.ID, post.Text, post.AuthorID, post.AuthorUsername, post.ConversationID,
		post.InReplyToID, post.QuoteTweetID, post.CreatedAt.UTC().Format(time.RFC3339), post.FetchedForUser)
	if err != nil {
		return fmt.Errorf("сохранение поста: %w", err)
	}
	return nil
}

// ListAllPosts возвращает все локально сохранённые посты.
func (s *SQLite) ListAllPosts(ctx context.Context) ([]domain.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT tweet_id, text, author_id, author_username, conversation_id, in_reply_to_id, quote_tweet_id, created_at, fetched_for_user
FROM tweets
ORDER BY created_at
`)
	if err != nil {
		return nil, fmt.Errorf("выборка постов: %w", err)
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		var post domain.Post
		var createdAt string
		var authorID, username, convID, replyTo, quoteID, fetchedFor sql.NullString
		if err := rows.Scan(&post.ID, &post.Text, &authorID, &username, &convID, &replyTo, &quoteID, &createdAt, &fetchedFor); err != nil {
			return nil, fmt.Errorf("чтение строки: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			post.CreatedAt = ts
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

// Close закрывает файл БД.
func (s *SQLite) Close() error {
	return s.db.Close()
}
