package generator

import (
	"context"
	"testing"
	"time"

	"nate-bot/internal/domain"
)

func TestAdjustTonePreservesQuotes(t *testing.T) {
	chat := &stubChat{content: `{"topic":"t","tweets":[{"text":"переписанный"},{"text":"второй"}]}`}
	a := NewToneAgent(chat, "test-model", time.Second)

	thread := domain.Thread{Topic: "t", Drafts: []domain.Draft{
		{Text: "исходный", QuoteTweetID: "q1"},
		{Text: "ещё один"},
	}}
	out, err := a.AdjustTone(context.Background(), thread)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out.Drafts[0].Text != "переписанный" {
		t.Fatalf("текст должен быть переписан: %q", out.Drafts[0].Text)
	}
	if out.Drafts[0].QuoteTweetID != "q1" {
		t.Fatalf("цитата должна сохраняться при коррекции тона")
	}
}

func TestAdjustToneCountMismatchKeepsOriginal(t *testing.T) {
	chat := &stubChat{content: `{"topic":"t","tweets":[{"text":"единственный"}]}`}
	a := NewToneAgent(chat, "test-model", time.Second)

	thread := domain.Thread{Drafts: []domain.Draft{{Text: "a"}, {Text: "b"}}}
	out, err := a.AdjustTone(context.Background(), thread)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out.Drafts[0].Text != "a" || out.Drafts[1].Text != "b" {
		t.Fatalf("при расхождении числа твитов исходная цепочка сохраняется: %+v", out.Drafts)
	}
}

func TestAdjustToneEmptyRewriteFallsBack(t *testing.T) {
	chat := &stubChat{content: `{"topic":"t","tweets":[{"text":"#only"}]}`}
	a := NewToneAgent(chat, "test-model", time.Second)

	thread := domain.Thread{Drafts: []domain.Draft{{Text: "оригинал"}}}
	out, err := a.AdjustTone(context.Background(), thread)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if out.Drafts[0].Text != "оригинал" {
		t.Fatalf("пустой рерайт должен откатываться к исходному тексту: %q", out.Drafts[0].Text)
	}
}
