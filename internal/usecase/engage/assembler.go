package engage

import (
	"context"

	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
)

// ConversationSet — результат сборки: агрегаты бесед плюс порядок их
// появления. Map в Go не сохраняет порядок вставки, а выбор бесед для
// ответа должен быть детерминированным, поэтому порядок несём отдельно.
type ConversationSet struct {
	Order []string
	Items map[string]*domain.Conversation
}

func newConversationSet() ConversationSet {
	return ConversationSet{Items: make(map[string]*domain.Conversation)}
}

func (s *ConversationSet) get(id string) *domain.Conversation {
	if conv, ok := s.Items[id]; ok {
		return conv
	}
	conv := domain.NewConversation(id)
	s.Items[id] = conv
	s.Order = append(s.Order, id)
	return conv
}

// Assembler собирает упоминания и локальную историю в агрегаты бесед.
type Assembler struct {
	gateway domain.TwitterGateway
	repo    domain.TweetRepo
	spam    domain.SpamClassifier
	log     zerolog.Logger
}

// NewAssembler создаёт сборщик бесед.
func NewAssembler(gateway domain.TwitterGateway, repo domain.TweetRepo, spam domain.SpamClassifier, logger zerolog.Logger) *Assembler {
	return &Assembler{gateway: gateway, repo: repo, spam: spam, log: logger}
}

// Assemble строит агрегаты бесед из удалённых упоминаний и локального
// хранилища. Для каждой новой беседы полная ветка выгружается одним
// батчем; сбой выгрузки логируется и не прерывает сборку остальных.
// Каждый увиденный удалённый пост попадает в локальное хранилище с
// отметкой, для какого пользователя он был выгружен, — это единственная
// точка, где читающий путь пишет в хранилище.
//
// Локальные посты вливаются после удалённых: локальная история бота
// авторитетна при совпадении ID.
func (a *Assembler) Assemble(ctx context.Context, mentions, localPosts []domain.Post, ownUsername string, filterSpam bool) ConversationSet {
	set := newConversationSet()

	if filterSpam {
		kept := make([]domain.Post, 0, len(mentions))
		dropped := 0
		for _, m := range mentions {
			if a.spam != nil && a.spam.IsSpam(m) {
				dropped++
				a.log.Debug().Str("post_id", m.ID).Str("author", m.AuthorUsername).Msg("упоминание отброшено как спам")
				continue
			}
			kept = append(kept, m)
		}
		if dropped > 0 {
			metrics.SpamDropped.Add(float64(dropped))
			a.log.Info().Int("dropped", dropped).Msg("спам-фильтр отбросил упоминания")
		}
		mentions = kept
	}

	for _, mention := range mentions {
		convID := mention.ConversationID
		if convID == "" {
			convID = mention.ID
		}

		_, seen := set.Items[convID]
		conv := set.get(convID)
		if !seen {
			posts, err := a.gateway.FetchConversation(ctx, convID)
			if err != nil {
				metrics.ConversationFetchErrors.Inc()
				a.log.Warn().Err(err).Str("conversation_id", convID).Msg("не удалось выгрузить беседу, пропускаем ветку")
			} else {
				for _, p := range posts {
					a.foldRemote(ctx, conv, p, ownUsername)
				}
			}
		}
		a.foldRemote(ctx, conv, mention, ownUsername)
	}

	for _, p := range localPosts {
		convID := p.ConversationID
		if convID == "" {
			convID = p.ID
		}
		set.get(convID).Fold(p, ownUsername)
	}

	return set
}

// foldRemote вливает удалённый пост в агрегат и сохраняет его локально.
func (a *Assembler) foldRemote(ctx context.Context, conv *domain.Conversation, post domain.Post, ownUsername string) {
	if post.FetchedForUser == "" {
		post.FetchedForUser = ownUsername
	}
	conv.Fold(post, ownUsername)
	if a.repo == nil {
		return
	}
	if err := a.repo.UpsertPost(ctx, post); err != nil {
		a.log.Warn().Err(err).Str("post_id", post.ID).Msg("не удалось сохранить пост в хранилище")
	}
}
