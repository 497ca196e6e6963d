package publish

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
)

type createCall struct {
	text         string
	inReplyToID  string
	quoteTweetID string
}

type stubGateway struct {
	calls   []createCall
	failAt  int
	nextID  int
	failErr error
}

func (s *stubGateway) Me(context.Context) (domain.Account, error) {
	return domain.Account{ID: "self", Username: "bot"}, nil
}
func (s *stubGateway) FetchTimeline(context.Context, int) ([]domain.Post, error) { return nil, nil }
func (s *stubGateway) FetchMentions(context.Context, string, time.Time) ([]domain.Post, error) {
	return nil, nil
}
func (s *stubGateway) FetchConversation(context.Context, string) ([]domain.Post, error) {
	return nil, nil
}
func (s *stubGateway) CreatePost(_ context.Context, text, inReplyToID, quoteTweetID string) (string, error) {
	s.calls = append(s.calls, createCall{text: text, inReplyToID: inReplyToID, quoteTweetID: quoteTweetID})
	if s.failAt > 0 && len(s.calls) == s.failAt {
		if s.failErr != nil {
			return "", s.failErr
		}
		return "", errors.New("boom")
	}
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID), nil
}

func TestPublishChainsReplies(t *testing.T) {
	gw := &stubGateway{}
	p := NewPublisher(gw, zerolog.Nop())
	drafts := []domain.Draft{{Text: "a"}, {Text: "b"}, {Text: "c", QuoteTweetID: "q"}}

	ids, err := p.Publish(context.Background(), drafts)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ожидали 3 ID, получили %d", len(ids))
	}
	if gw.calls[0].inReplyToID != "" {
		t.Fatalf("первый твит цепочки не должен быть ответом")
	}
	if gw.calls[1].inReplyToID != ids[0] || gw.calls[2].inReplyToID != ids[1] {
		t.Fatalf("каждый твит должен отвечать на непосредственно предыдущий")
	}
	if gw.calls[2].quoteTweetID != "q" {
		t.Fatalf("цитата должна передаваться в платформу")
	}
}

func TestPublishChainParent(t *testing.T) {
	gw := &stubGateway{}
	p := NewPublisher(gw, zerolog.Nop())

	ids, err := p.PublishChain(context.Background(), "root", []domain.Draft{{Text: "reply"}})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("ожидали 1 ID")
	}
	if gw.calls[0].inReplyToID != "root" {
		t.Fatalf("первый черновик должен отвечать на родительский пост")
	}
}

func TestPublishStopsAtFirstFailure(t *testing.T) {
	gw := &stubGateway{failAt: 2}
	p := NewPublisher(gw, zerolog.Nop())
	drafts := []domain.Draft{{Text: "a"}, {Text: "b"}, {Text: "c"}}

	ids, err := p.Publish(context.Background(), drafts)
	if err == nil {
		t.Fatalf("ожидали ошибку публикации")
	}
	var pubErr *domain.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("ожидали *domain.PublishError, получили %T", err)
	}
	if pubErr.Published != 1 || pubErr.Total != 3 {
		t.Fatalf("ожидали префикс 1 из 3, получили %d из %d", pubErr.Published, pubErr.Total)
	}
	if len(ids) != 1 {
		t.Fatalf("возвращённые ID должны совпадать с опубликованным префиксом")
	}
	if len(gw.calls) != 2 {
		t.Fatalf("после сбоя публикация должна остановиться, вызовов: %d", len(gw.calls))
	}
}

func TestPublishFullFailure(t *testing.T) {
	gw := &stubGateway{failAt: 1, failErr: &domain.PlatformError{StatusCode: 429}}
	p := NewPublisher(gw, zerolog.Nop())

	ids, err := p.Publish(context.Background(), []domain.Draft{{Text: "a"}})
	if len(ids) != 0 {
		t.Fatalf("при полном сбое префикс пуст")
	}
	var pubErr *domain.PublishError
	if !errors.As(err, &pubErr) || pubErr.Published != 0 {
		t.Fatalf("ожидали PublishError с нулевым префиксом: %v", err)
	}
	var platformErr *domain.PlatformError
	if !errors.As(err, &platformErr) || !platformErr.IsRateLimited() {
		t.Fatalf("исходная ошибка платформы должна разворачиваться: %v", err)
	}
}
