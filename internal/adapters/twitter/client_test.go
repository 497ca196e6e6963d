package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nate-bot/internal/domain"
)

func TestFetchConversationParsesIncludes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets/search/recent" {
			t.Fatalf("неожиданный путь: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "conversation_id:c1" {
			t.Fatalf("неожиданный query: %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Fatalf("неожиданный заголовок авторизации: %s", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"id":              "t1",
					"text":            "hello",
					"author_id":       "u1",
					"conversation_id": "c1",
					"created_at":      "2026-08-01T12:00:00Z",
					"referenced_tweets": []map[string]string{
						{"type": "replied_to", "id": "t0"},
						{"type": "quoted", "id": "q0"},
					},
				},
			},
			"includes": map[string]any{
				"users": []map[string]string{{"id": "u1", "username": "alice"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("token", srv.URL, time.Second, 100)
	posts, err := c.FetchConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("ожидали 1 пост, получили %d", len(posts))
	}
	p := posts[0]
	if p.AuthorUsername != "alice" {
		t.Fatalf("username должен подставляться из includes, получили %q", p.AuthorUsername)
	}
	if p.InReplyToID != "t0" || p.QuoteTweetID != "q0" {
		t.Fatalf("referenced_tweets разобраны неверно: %+v", p)
	}
}

func TestCreatePostBuildsReply(t *testing.T) {
	var captured createTweetRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/2/tweets" {
			t.Fatalf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("не удалось разобрать тело: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"new-id","text":"hi"}}`))
	}))
	defer srv.Close()

	c := NewClient("token", srv.URL, time.Second, 100)
	id, err := c.CreatePost(context.Background(), "hi", "parent", "quoted")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if id != "new-id" {
		t.Fatalf("ожидали ID new-id, получили %q", id)
	}
	if captured.Reply == nil || captured.Reply.InReplyToTweetID != "parent" {
		t.Fatalf("reply не передан: %+v", captured)
	}
	if captured.QuoteTweetID != "quoted" {
		t.Fatalf("quote_tweet_id не передан: %+v", captured)
	}
}

func TestPlatformErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		check  func(*domain.PlatformError) bool
	}{
		{http.StatusUnauthorized, (*domain.PlatformError).IsUnauthorized},
		{http.StatusTooManyRequests, (*domain.PlatformError).IsRateLimited},
		{http.StatusInternalServerError, (*domain.PlatformError).IsServerError},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"title":"error","detail":"details"}`))
		}))
		c := NewClient("token", srv.URL, time.Second, 100)
		_, err := c.FetchConversation(context.Background(), "c1")
		srv.Close()
		if err == nil {
			t.Fatalf("статус %d должен давать ошибку", tc.status)
		}
		var platformErr *domain.PlatformError
		if !errors.As(err, &platformErr) {
			t.Fatalf("ожидали *domain.PlatformError, получили %T", err)
		}
		if !tc.check(platformErr) {
			t.Fatalf("статус %d классифицирован неверно: %+v", tc.status, platformErr)
		}
		if platformErr.Message == "" {
			t.Fatalf("сообщение из тела ответа должно сохраняться")
		}
	}
}
