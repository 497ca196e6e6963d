package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
	"nate-bot/internal/usecase/engage"
)

type fakeGateway struct {
	mentions      []domain.Post
	conversations map[string][]domain.Post
	timeline      []domain.Post
	created       []createCall
	nextID        int
}

func (f *fakeGateway) Me(context.Context) (domain.Account, error) {
	return domain.Account{ID: "self", Username: "bot"}, nil
}
func (f *fakeGateway) FetchTimeline(context.Context, int) ([]domain.Post, error) {
	return f.timeline, nil
}
func (f *fakeGateway) FetchMentions(context.Context, string, time.Time) ([]domain.Post, error) {
	return f.mentions, nil
}
func (f *fakeGateway) FetchConversation(_ context.Context, id string) ([]domain.Post, error) {
	return f.conversations[id], nil
}
func (f *fakeGateway) CreatePost(_ context.Context, text, inReplyToID, quoteTweetID string) (string, error) {
	f.created = append(f.created, createCall{text: text, inReplyToID: inReplyToID, quoteTweetID: quoteTweetID})
	f.nextID++
	return fmt.Sprintf("new-%d", f.nextID), nil
}

type fakeRepo struct {
	posts map[string]domain.Post
}

func newFakeRepo() *fakeRepo { return &fakeRepo{posts: make(map[string]domain.Post)} }

func (f *fakeRepo) UpsertPost(_ context.Context, post domain.Post) error {
	f.posts[post.ID] = post
	return nil
}
func (f *fakeRepo) ListAllPosts(context.Context) ([]domain.Post, error) {
	out := make([]domain.Post, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, p)
	}
	return out, nil
}

type fakeGenerator struct {
	thread      domain.Thread
	lastContext string
	lastAction  domain.Action
}

func (f *fakeGenerator) Generate(_ context.Context, _ []domain.Post, action domain.Action, conversationContext string) (domain.Thread, error) {
	f.lastAction = action
	f.lastContext = conversationContext
	return f.thread, nil
}

type passSpam struct{}

func (passSpam) IsSpam(domain.Post) bool { return false }

// memCache повторяет семантику SetNX-защиты: ключ занимается до вызова
// fn и освобождается только при её ошибке.
type memCache struct {
	keys map[string]struct{}
	vals map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{keys: make(map[string]struct{}), vals: make(map[string][]byte)}
}

func (m *memCache) Once(key string, _ time.Duration, fn func() error) error {
	if _, ok := m.keys[key]; ok {
		return nil
	}
	m.keys[key] = struct{}{}
	if err := fn(); err != nil {
		delete(m.keys, key)
		return err
	}
	return nil
}

func (m *memCache) Set(key string, value []byte, _ time.Duration) error {
	m.vals[key] = value
	return nil
}

func (m *memCache) Get(key string) ([]byte, error) {
	v, ok := m.vals[key]
	if !ok {
		return nil, errors.New("cache: key not found")
	}
	return v, nil
}

func newTestService(gw *fakeGateway, repo *fakeRepo, gen *fakeGenerator) *Service {
	logger := zerolog.Nop()
	assembler := engage.NewAssembler(gw, repo, passSpam{}, logger)
	publisher := NewPublisher(gw, logger)
	return NewService(gw, repo, gen, nil, assembler, publisher, nil, logger, 40, 5, true)
}

func TestReplyCycleRepliesToNewestPost(t *testing.T) {
	gw := &fakeGateway{
		mentions: []domain.Post{
			{ID: "m1", ConversationID: "c1", AuthorUsername: "alice", Text: "@bot wdyt", CreatedAt: time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)},
		},
		conversations: map[string][]domain.Post{
			"c1": {{ID: "root", ConversationID: "c1", AuthorUsername: "alice", Text: "original take", CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}},
		},
	}
	repo := newFakeRepo()
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "my reply"}}}}
	svc := newTestService(gw, repo, gen)

	if err := svc.ReplyCycle(context.Background(), false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 1 {
		t.Fatalf("ожидали один опубликованный ответ, получили %d", len(gw.created))
	}
	if gw.created[0].inReplyToID != "m1" {
		t.Fatalf("ответ должен цеплять самый свежий пост беседы, получили %q", gw.created[0].inReplyToID)
	}
	if gen.lastAction != domain.ActionReply {
		t.Fatalf("ожидали действие reply, получили %s", gen.lastAction)
	}
	if !strings.Contains(gen.lastContext, "@alice: original take") {
		t.Fatalf("контекст беседы должен попадать в генератор:\n%s", gen.lastContext)
	}
	saved, ok := repo.posts["new-1"]
	if !ok {
		t.Fatalf("опубликованный ответ должен сохраняться локально")
	}
	if saved.ConversationID != "c1" || saved.AuthorUsername != "bot" {
		t.Fatalf("ответ сохранён с неверными атрибутами: %+v", saved)
	}
}

func TestReplyCycleSkipsOwnLastWord(t *testing.T) {
	gw := &fakeGateway{
		mentions: []domain.Post{
			{ID: "m1", ConversationID: "c1", AuthorUsername: "alice", CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		},
		conversations: map[string][]domain.Post{
			"c1": {{ID: "own", ConversationID: "c1", AuthorUsername: "bot", CreatedAt: time.Date(2026, 8, 1, 13, 0, 0, 0, time.UTC)}},
		},
	}
	repo := newFakeRepo()
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "noise"}}}}
	svc := newTestService(gw, repo, gen)

	if err := svc.ReplyCycle(context.Background(), false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 0 {
		t.Fatalf("последнее слово за ботом, публикаций быть не должно: %d", len(gw.created))
	}
}

func TestPostContentDeduplicatesAndChains(t *testing.T) {
	gw := &fakeGateway{timeline: []domain.Post{{ID: "t1", AuthorUsername: "alice", Text: "news"}}}
	repo := newFakeRepo()
	gen := &fakeGenerator{thread: domain.Thread{Topic: "topic", Drafts: []domain.Draft{
		{Text: "a", QuoteTweetID: "t1"},
		{Text: "b", QuoteTweetID: "t1"},
		{Text: "c"},
	}}}
	svc := newTestService(gw, repo, gen)

	if err := svc.PostContent(context.Background(), domain.ActionThread, false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 3 {
		t.Fatalf("ожидали 3 публикации, получили %d", len(gw.created))
	}
	if gw.created[1].quoteTweetID != "" {
		t.Fatalf("повторная цитата должна быть очищена перед публикацией")
	}
	if gw.created[1].inReplyToID != "new-1" || gw.created[2].inReplyToID != "new-2" {
		t.Fatalf("твиты треда должны цепляться друг за друга: %+v", gw.created)
	}
	saved := repo.posts["new-2"]
	if saved.ConversationID != "new-1" || saved.InReplyToID != "new-1" {
		t.Fatalf("локальная запись треда неверна: %+v", saved)
	}
}

func TestReplyCycleDryRunKeepsGuardFree(t *testing.T) {
	gw := &fakeGateway{
		mentions: []domain.Post{
			{ID: "m1", ConversationID: "c1", AuthorUsername: "alice", CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		},
		conversations: map[string][]domain.Post{},
	}
	repo := newFakeRepo()
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "my reply"}}}}
	logger := zerolog.Nop()
	cache := newMemCache()
	assembler := engage.NewAssembler(gw, repo, passSpam{}, logger)
	svc := NewService(gw, repo, gen, nil, assembler, NewPublisher(gw, logger), cache, logger, 40, 5, true)

	if err := svc.ReplyCycle(context.Background(), true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 0 {
		t.Fatalf("dry-run не публикует: %d", len(gw.created))
	}
	if len(cache.keys) != 0 {
		t.Fatalf("dry-run не должен занимать защиту от повторов: %v", cache.keys)
	}

	if err := svc.ReplyCycle(context.Background(), false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 1 {
		t.Fatalf("реальный цикл после dry-run обязан ответить, публикаций: %d", len(gw.created))
	}
}

func TestReplyCycleGuardStopsDuplicateReply(t *testing.T) {
	gw := &fakeGateway{
		mentions: []domain.Post{
			{ID: "m1", ConversationID: "c1", AuthorUsername: "alice", CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		},
		conversations: map[string][]domain.Post{},
	}
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "my reply"}}}}
	logger := zerolog.Nop()
	cache := newMemCache()
	// Репозиторий без записи: повтор отсекается только ключом в кэше.
	assembler := engage.NewAssembler(gw, nil, passSpam{}, logger)
	svc := NewService(gw, newFakeRepo(), gen, nil, assembler, NewPublisher(gw, logger), cache, logger, 40, 5, true)

	conv := domain.NewConversation("c1")
	conv.Fold(domain.Post{ID: "m1", AuthorUsername: "alice", CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}, "bot")
	account := domain.Account{ID: "self", Username: "bot"}

	if err := svc.replyTo(context.Background(), account, conv, false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := svc.replyTo(context.Background(), account, conv, false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 1 {
		t.Fatalf("на одно состояние беседы один ответ, публикаций: %d", len(gw.created))
	}
}

func TestRepliesDoNotCountAsContent(t *testing.T) {
	gw := &fakeGateway{
		mentions: []domain.Post{
			{ID: "m1", ConversationID: "c1", AuthorUsername: "alice", CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		},
		conversations: map[string][]domain.Post{},
	}
	repo := newFakeRepo()
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "my reply"}}}}
	svc := newTestService(gw, repo, gen)

	contentBefore := testutil.ToFloat64(metrics.ContentPublished)
	repliesBefore := testutil.ToFloat64(metrics.RepliesSent)
	if err := svc.ReplyCycle(context.Background(), false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ContentPublished); got != contentBefore {
		t.Fatalf("ответ не должен считаться опубликованным контентом: %v -> %v", contentBefore, got)
	}
	if got := testutil.ToFloat64(metrics.RepliesSent); got != repliesBefore+1 {
		t.Fatalf("ответ должен учитываться счётчиком ответов: %v -> %v", repliesBefore, got)
	}
}

func TestPostContentCountsAsContent(t *testing.T) {
	gw := &fakeGateway{timeline: []domain.Post{{ID: "t1", Text: "news"}}}
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "a"}, {Text: "b"}}}}
	svc := newTestService(gw, newFakeRepo(), gen)

	before := testutil.ToFloat64(metrics.ContentPublished)
	if err := svc.PostContent(context.Background(), domain.ActionThread, false); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if got := testutil.ToFloat64(metrics.ContentPublished); got != before+1 {
		t.Fatalf("опубликованный тред должен учитываться: %v -> %v", before, got)
	}
}

func TestPostContentDryRun(t *testing.T) {
	gw := &fakeGateway{timeline: []domain.Post{{ID: "t1", Text: "news"}}}
	repo := newFakeRepo()
	gen := &fakeGenerator{thread: domain.Thread{Drafts: []domain.Draft{{Text: "a"}}}}
	svc := newTestService(gw, repo, gen)

	if err := svc.PostContent(context.Background(), domain.ActionSingle, true); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(gw.created) != 0 {
		t.Fatalf("в dry-run публикаций быть не должно")
	}
	if len(repo.posts) != 0 {
		t.Fatalf("в dry-run ничего не сохраняется")
	}
}
