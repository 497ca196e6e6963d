package generator

import (
	"strings"
	"testing"

	"nate-bot/internal/domain"
)

func TestCleanTweetStripsWrapping(t *testing.T) {
	in := "```\n\"gm to all #crypto builders\"\n```"
	got := CleanTweet(in)
	if got != "gm to all builders" {
		t.Fatalf("ожидали очищенный текст, получили %q", got)
	}
}

func TestCleanTweetKeepsPlainText(t *testing.T) {
	in := "обычный твит без мусора"
	if got := CleanTweet(in); got != in {
		t.Fatalf("чистый текст не должен меняться: %q", got)
	}
}

func TestCleanThreadDropsEmptyDrafts(t *testing.T) {
	thread := domain.Thread{Topic: "t", Drafts: []domain.Draft{
		{Text: "#only #tags"},
		{Text: "живой твит", QuoteTweetID: "q1"},
	}}
	out := CleanThread(thread)
	if len(out.Drafts) != 1 {
		t.Fatalf("пустой черновик должен быть выброшен, осталось %d", len(out.Drafts))
	}
	if out.Drafts[0].QuoteTweetID != "q1" {
		t.Fatalf("цитата должна сохраняться при чистке")
	}
}

func TestFormatTimelineReversesOrder(t *testing.T) {
	posts := []domain.Post{
		{ID: "1", AuthorUsername: "alice", Text: "первый"},
		{ID: "2", AuthorUsername: "carol", Text: "второй"},
	}
	out := FormatTimeline(posts)
	first := strings.Index(out, "tweet_id:2")
	second := strings.Index(out, "tweet_id:1")
	if first == -1 || second == -1 || first > second {
		t.Fatalf("свежие посты должны идти первыми:\n%s", out)
	}
	if !strings.Contains(out, "@alice:первый") {
		t.Fatalf("формат блока нарушен:\n%s", out)
	}
}
