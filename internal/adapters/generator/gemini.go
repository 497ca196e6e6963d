package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
)

// Gemini реализует domain.Generator через Google GenAI SDK.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini создаёт генератор на базе Gemini.
func NewGemini(ctx context.Context, apiKey, model string, timeout time.Duration) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is empty")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

var _ domain.Generator = (*Gemini)(nil)

// Generate строит черновики по таймлайну и типу действия.
func (g *Gemini) Generate(ctx context.Context, timeline []domain.Post, action domain.Action, conversationContext string) (domain.Thread, error) {
	if len(timeline) == 0 && action != domain.ActionReply {
		return domain.Thread{}, domain.ErrEmptyTimeline
	}

	instruction := ""
	switch action {
	case domain.ActionThread:
		instruction = actionThreadInstruction
	case domain.ActionReply:
		instruction = fmt.Sprintf(actionReplyInstruction, conversationContext)
	default:
		instruction = actionSingleInstruction
	}
	prompt := systemPrompt + "\n\n" + fmt.Sprintf(userPromptTemplate, FormatTimeline(timeline), instruction)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	metrics.ObserveNetworkRequest("gemini", "generate_content", g.model, start, err)
	if err != nil {
		return domain.Thread{}, fmt.Errorf("генерация контента: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return domain.Thread{}, fmt.Errorf("генерация контента: пустой ответ модели")
	}

	content := stripFences(result.Candidates[0].Content.Parts[0].Text)
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

// stripFences снимает маркдаун-обёртку, которую Gemini любит добавлять
// даже при запрошенном JSON.
func stripFences(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
