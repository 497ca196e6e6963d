package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nate-bot/internal/domain"
	openai "nate-bot/internal/infra/openai"
)

// ToneAgent переписывает готовую цепочку под голос персонажа.
// Число и порядок черновиков сохраняются; при расхождении исходная
// цепочка возвращается без изменений.
type ToneAgent struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// NewToneAgent создаёт агента тона.
func NewToneAgent(client chatClient, model string, timeout time.Duration) *ToneAgent {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ToneAgent{client: client, model: model, timeout: timeout}
}

var _ domain.ToneAdjuster = (*ToneAgent)(nil)

// AdjustTone возвращает новую цепочку с переписанными текстами.
// Цитаты черновиков не трогаются: правится только текст.
func (a *ToneAgent) AdjustTone(ctx context.Context, thread domain.Thread) (domain.Thread, error) {
	if len(thread.Drafts) == 0 {
		return thread, nil
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Topic: %s\n---\n", thread.Topic)
	texts := make([]string, 0, len(thread.Drafts))
	for _, d := range thread.Drafts {
		texts = append(texts, d.Text)
	}
	prompt.WriteString(strings.Join(texts, "\n---\n"))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: toneSystemPrompt},
			{Role: openai.RoleUser, Content: prompt.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("коррекция тона: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.Thread{}, fmt.Errorf("коррекция тона: пустой ответ модели")
	}

	var parsed threadPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Choices[0].Message.Content)), &parsed); err != nil {
		return domain.Thread{}, fmt.Errorf("распаковка ответа LLM: %w", err)
	}
	if len(parsed.Tweets) != len(thread.Drafts) {
		// Модель потеряла или добавила твиты — оставляем исходный вариант.
		return thread, nil
	}

	out := domain.Thread{Topic: thread.Topic, Drafts: make([]domain.Draft, len(thread.Drafts))}
	if parsed.Topic != "" {
		out.Topic = parsed.Topic
	}
	for i, d := range thread.Drafts {
		text := CleanTweet(parsed.Tweets[i].Text)
		if text == "" {
			text = d.Text
		}
		out.Drafts[i] = domain.Draft{Text: text, QuoteTweetID: d.QuoteTweetID}
	}
	return out, nil
}
