package publish

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
	"nate-bot/internal/usecase/engage"
)

const (
	mentionsCursorKey = "mentions:last_fetch"
	replyGuardTTL     = 7 * 24 * time.Hour
)

// Service связывает генерацию контента с публикацией: одиночные посты,
// треды и цикл ответов на упоминания.
type Service struct {
	gateway   domain.TwitterGateway
	repo      domain.TweetRepo
	generator domain.Generator
	tone      domain.ToneAdjuster
	assembler *engage.Assembler
	publisher *Publisher
	cache     domain.Cache
	log       zerolog.Logger

	timelineMax int
	threadMax   int
	filterSpam  bool
}

// NewService создаёт workflow-сервис. tone и cache могут быть nil:
// без tone цепочка публикуется как есть, без cache не работает защита
// от повторных ответов и курсор упоминаний.
func NewService(
	gateway domain.TwitterGateway,
	repo domain.TweetRepo,
	gen domain.Generator,
	tone domain.ToneAdjuster,
	assembler *engage.Assembler,
	publisher *Publisher,
	cache domain.Cache,
	logger zerolog.Logger,
	timelineMax, threadMax int,
	filterSpam bool,
) *Service {
	if timelineMax <= 0 {
		timelineMax = 40
	}
	if threadMax <= 0 {
		threadMax = 5
	}
	return &Service{
		gateway:     gateway,
		repo:        repo,
		generator:   gen,
		tone:        tone,
		assembler:   assembler,
		publisher:   publisher,
		cache:       cache,
		log:         logger,
		timelineMax: timelineMax,
		threadMax:   threadMax,
		filterSpam:  filterSpam,
	}
}

// PostContent генерирует и публикует одиночный пост или тред по таймлайну.
func (s *Service) PostContent(ctx context.Context, action domain.Action, dryRun bool) error {
	account, err := s.gateway.Me(ctx)
	if err != nil {
		return fmt.Errorf("учётная запись бота: %w", err)
	}

	timeline, err := s.gateway.FetchTimeline(ctx, s.timelineMax)
	if err != nil {
		return fmt.Errorf("выгрузка таймлайна: %w", err)
	}

	thread, err := s.generator.Generate(ctx, timeline, action, "")
	if err != nil {
		return fmt.Errorf("генерация: %w", err)
	}
	thread = s.adjustTone(ctx, thread)
	thread = DedupQuotes(thread)
	if len(thread.Drafts) > s.threadMax {
		thread.Drafts = thread.Drafts[:s.threadMax]
	}

	if dryRun {
		s.logDrafts(thread)
		return nil
	}

	ids, err := s.publisher.Publish(ctx, thread.Drafts)
	s.persistPublished(ctx, account, "", thread.Drafts, ids)
	if err != nil {
		return s.reportPublish(err)
	}
	metrics.ContentPublished.Inc()
	s.log.Info().Str("topic", thread.Topic).Int("tweets", len(ids)).Msg("цепочка опубликована")
	return nil
}

// ReplyCycle выгружает упоминания, собирает беседы и отвечает там, где
// за ботом не осталось последнего слова.
func (s *Service) ReplyCycle(ctx context.Context, dryRun bool) error {
	account, err := s.gateway.Me(ctx)
	if err != nil {
		return fmt.Errorf("учётная запись бота: %w", err)
	}

	since := s.loadCursor()
	mentions, err := s.gateway.FetchMentions(ctx, account.ID, since)
	if err != nil {
		return fmt.Errorf("выгрузка упоминаний: %w", err)
	}

	localPosts, err := s.repo.ListAllPosts(ctx)
	if err != nil {
		return fmt.Errorf("локальная история: %w", err)
	}

	set := s.assembler.Assemble(ctx, mentions, localPosts, account.Username, s.filterSpam)
	pending := engage.Pending(set, s.log)
	s.log.Info().Int("conversations", len(set.Order)).Int("pending", len(pending.Order)).Msg("беседы собраны")

	for _, convID := range pending.Order {
		conv := pending.Items[convID]
		if err := s.replyTo(ctx, account, conv, dryRun); err != nil {
			var platformErr *domain.PlatformError
			if errors.As(err, &platformErr) && platformErr.IsUnauthorized() {
				return fmt.Errorf("ответ в беседе %s: %w", convID, err)
			}
			s.log.Error().Err(err).Str("conversation_id", convID).Msg("не удалось ответить в беседе")
		}
	}

	s.saveCursor(time.Now().UTC())
	return nil
}

func (s *Service) replyTo(ctx context.Context, account domain.Account, conv *domain.Conversation, dryRun bool) error {
	newest, ok := conv.Newest()
	if !ok {
		return nil
	}

	// Dry-run не доходит до защиты от повторов: холостой прогон не должен
	// занимать ключ, иначе следующий реальный цикл молча пропустит беседу.
	if dryRun {
		thread, err := s.buildReply(ctx, conv)
		if err != nil {
			return err
		}
		s.logDrafts(domain.Thread{Topic: thread.Topic, Drafts: thread.Drafts[:1]})
		return nil
	}

	send := func() error {
		thread, err := s.buildReply(ctx, conv)
		if err != nil {
			return err
		}
		// Ответ — всегда один твит, даже если модель вернула больше.
		drafts := thread.Drafts[:1]

		ids, err := s.publisher.PublishChain(ctx, newest.ID, drafts)
		s.persistPublished(ctx, account, conv.ID, drafts, ids)
		if err != nil {
			return s.reportPublish(err)
		}
		metrics.RepliesSent.Inc()
		s.log.Info().Str("conversation_id", conv.ID).Str("reply_id", ids[0]).Msg("ответ отправлен")
		return nil
	}

	if s.cache == nil {
		return send()
	}
	// Один ответ на состояние беседы: ключ включает ID последнего поста,
	// новая реплика собеседника откроет ветку заново.
	return s.cache.Once("replied:"+conv.ID+":"+newest.ID, replyGuardTTL, send)
}

// buildReply генерирует черновик ответа по контексту беседы.
func (s *Service) buildReply(ctx context.Context, conv *domain.Conversation) (domain.Thread, error) {
	thread, err := s.generator.Generate(ctx, nil, domain.ActionReply, conversationContext(conv))
	if err != nil {
		return domain.Thread{}, fmt.Errorf("генерация ответа: %w", err)
	}
	thread = s.adjustTone(ctx, thread)
	thread = DedupQuotes(thread)
	if len(thread.Drafts) == 0 {
		return domain.Thread{}, domain.ErrNoDrafts
	}
	return thread, nil
}

func (s *Service) adjustTone(ctx context.Context, thread domain.Thread) domain.Thread {
	if s.tone == nil {
		return thread
	}
	adjusted, err := s.tone.AdjustTone(ctx, thread)
	if err != nil {
		s.log.Warn().Err(err).Msg("коррекция тона не удалась, публикуем исходный вариант")
		return thread
	}
	return adjusted
}

// persistPublished сохраняет опубликованный префикс в локальное хранилище.
// Вызывается и при частичном сбое: то, что успело уйти, уже на платформе.
func (s *Service) persistPublished(ctx context.Context, account domain.Account, conversationID string, drafts []domain.Draft, ids []string) {
	now := time.Now().UTC()
	previousID := ""
	for i, id := range ids {
		convID := conversationID
		if convID == "" {
			convID = ids[0]
		}
		post := domain.Post{
			ID:             id,
			Text:           drafts[i].Text,
			AuthorID:       account.ID,
			AuthorUsername: account.Username,
			ConversationID: convID,
			InReplyToID:    previousID,
			QuoteTweetID:   drafts[i].QuoteTweetID,
			CreatedAt:      now.Add(time.Duration(i) * time.Millisecond),
			FetchedForUser: account.Username,
		}
		if err := s.repo.UpsertPost(ctx, post); err != nil {
			s.log.Warn().Err(err).Str("post_id", id).Msg("не удалось сохранить опубликованный пост")
		}
		previousID = id
	}
}

// reportPublish переводит ошибку публикации в отчёт для оператора:
// частичный успех всегда отличим от полного сбоя.
func (s *Service) reportPublish(err error) error {
	var pubErr *domain.PublishError
	if errors.As(err, &pubErr) {
		if pubErr.Published > 0 {
			s.log.Error().Int("published", pubErr.Published).Int("total", pubErr.Total).
				Msgf("частичная публикация: опубликовано %d из %d", pubErr.Published, pubErr.Total)
		} else {
			s.log.Error().Int("total", pubErr.Total).Msg("публикация не удалась полностью")
		}
	}
	return err
}

func (s *Service) loadCursor() time.Time {
	if s.cache == nil {
		return time.Time{}
	}
	raw, err := s.cache.Get(mentionsCursorKey)
	if err != nil || len(raw) == 0 {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, string(raw))
	if err != nil {
		return time.Time{}
	}
	return ts
}

func (s *Service) saveCursor(ts time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(mentionsCursorKey, []byte(ts.Format(time.RFC3339)), 0); err != nil {
		s.log.Warn().Err(err).Msg("не удалось сохранить курсор упоминаний")
	}
}

func (s *Service) logDrafts(thread domain.Thread) {
	s.log.Info().Str("topic", thread.Topic).Int("tweets", len(thread.Drafts)).Msg("dry-run: цепочка не публикуется")
	for i, d := range thread.Drafts {
		s.log.Info().Int("index", i+1).Str("quote_tweet_id", d.QuoteTweetID).Msg(d.Text)
	}
}

// conversationContext собирает реплики беседы в текст промпта,
// в хронологическом порядке.
func conversationContext(conv *domain.Conversation) string {
	posts := make([]domain.Post, 0, len(conv.Posts))
	for _, p := range conv.Posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })

	var b strings.Builder
	for _, p := range posts {
		fmt.Fprintf(&b, "@%s: %s\n", p.AuthorUsername, p.Text)
	}
	return b.String()
}
