package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
	openai "nate-bot/internal/infra/openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM реализует domain.Generator через Chat Completions.
// Провайдеры OpenAI, OpenRouter и Ollama отличаются только клиентом.
type LLM struct {
	client  chatClient
	model   string
	timeout time.Duration
	market  domain.MarketData
	log     zerolog.Logger
}

// NewLLM создаёт генератор. market может быть nil — тогда рыночный
// контекст в промпт не добавляется.
func NewLLM(client chatClient, model string, timeout time.Duration, market domain.MarketData, logger zerolog.Logger) *LLM {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLM{client: client, model: model, timeout: timeout, market: market, log: logger}
}

var _ domain.Generator = (*LLM)(nil)

type singlePayload struct {
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

type threadPayload struct {
	Topic  string        `json:"topic"`
	Tweets []threadTweet `json:"tweets"`
}

type threadTweet struct {
	Text         string `json:"text"`
	QuoteTweetID string `json:"quote_tweet_id,omitempty"`
}

// Generate строит черновики по таймлайну и типу действия. Гарантирует
// хотя бы один непустой черновик либо ошибку.
func (g *LLM) Generate(ctx context.Context, timeline []domain.Post, action domain.Action, conversationContext string) (domain.Thread, error) {
	if len(timeline) == 0 && action != domain.ActionReply {
		return domain.Thread{}, domain.ErrEmptyTimeline
	}

	instruction := g.instruction(ctx, action, conversationContext)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 1.2,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: systemPrompt},
			{Role: openai.RoleUser, Content: fmt.Sprintf(userPromptTemplate, FormatTimeline(timeline), instruction)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("генерация контента: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Thread{}, fmt.Errorf("генерация контента: пустой ответ модели")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)

	thread, err := parseThread(content, action)
	if err != nil {
		return domain.Thread{}, err
	}
	thread = CleanThread(thread)
	if len(thread.Drafts) == 0 {
		return domain.Thread{}, domain.ErrNoDrafts
	}
	return thread, nil
}

func (g *LLM) instruction(ctx context.Context, action domain.Action, conversationContext string) string {
	switch action {
	case domain.ActionThread:
		return actionThreadInstruction
	case domain.ActionReply:
		return fmt.Sprintf(actionReplyInstruction, conversationContext)
	default:
		instruction := actionSingleInstruction
		if g.market != nil {
			if snap, err := g.market.Snapshot(ctx); err != nil {
				g.log.Warn().Err(err).Msg("generator: рыночные данные недоступны, промпт без контекста")
			} else {
				instruction += "\n\n" + fmt.Sprintf(marketContextTemplate,
					strings.Join(snap.Trending, ", "), snap.TotalMarketCapUSD, snap.BTCDominance)
			}
		}
		return instruction
	}
}

func parseThread(content string, action domain.Action) (domain.Thread, error) {
	if action == domain.ActionThread {
		var parsed threadPayload
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return domain.Thread{}, fmt.Errorf("распаковка ответа LLM: %w", err)
		}
		drafts := make([]domain.Draft, 0, len(parsed.Tweets))
		for _, t := range parsed.Tweets {
			drafts = append(drafts, domain.Draft{Text: t.Text, QuoteTweetID: t.QuoteTweetID})
		}
		return domain.Thread{Topic: parsed.Topic, Drafts: drafts}, nil
	}

	var parsed singlePayload
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return domain.Thread{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	return domain.Thread{Topic: parsed.Topic, Drafts: []domain.Draft{{Text: parsed.Text}}}, nil
}
