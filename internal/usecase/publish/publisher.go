package publish

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
)

// Publisher публикует цепочку черновиков строго последовательно:
// каждый следующий твит отвечает на непосредственно предыдущий.
type Publisher struct {
	gateway domain.TwitterGateway
	log     zerolog.Logger
}

// NewPublisher создаёт издателя.
func NewPublisher(gateway domain.TwitterGateway, logger zerolog.Logger) *Publisher {
	return &Publisher{gateway: gateway, log: logger}
}

// Publish публикует цепочку: первый черновик без родителя, далее каждый
// твит ссылается на предыдущий присвоенный ID. При первом сбое публикация
// останавливается и возвращается *domain.PublishError с длиной успешного
// префикса. Уже опубликованные посты остаются на платформе: отката нет,
// публикация на удалённой стороне не транзакционна.
func (p *Publisher) Publish(ctx context.Context, drafts []domain.Draft) ([]string, error) {
	return p.PublishChain(ctx, "", drafts)
}

// PublishChain — то же, что Publish, но первый черновик отвечает на
// указанный пост. Используется для ответов в беседах.
func (p *Publisher) PublishChain(ctx context.Context, parentID string, drafts []domain.Draft) ([]string, error) {
	start := time.Now()
	ids := make([]string, 0, len(drafts))

	previousID := parentID
	for i, draft := range drafts {
		id, err := p.gateway.CreatePost(ctx, draft.Text, previousID, draft.QuoteTweetID)
		if err != nil {
			metrics.PublishFailures.WithLabelValues(outcome(len(ids))).Inc()
			p.log.Error().Err(err).Int("published", len(ids)).Int("total", len(drafts)).Int("failed_index", i).
				Msg("публикация цепочки остановлена")
			return ids, &domain.PublishError{Published: len(ids), Total: len(drafts), Err: err}
		}
		ids = append(ids, id)
		previousID = id
	}

	metrics.PublishSeconds.Observe(time.Since(start).Seconds())
	return ids, nil
}

func outcome(published int) string {
	if published == 0 {
		return "full_failure"
	}
	return "partial"
}
