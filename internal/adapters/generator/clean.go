package generator

import (
	"fmt"
	"strings"

	"nate-bot/internal/domain"
)

// CleanTweet убирает из сгенерированного текста обрамляющие кавычки,
// код-блоки и слова-хэштеги. Модель периодически заворачивает ответ в
// "```" несмотря на инструкции.
func CleanTweet(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "`")
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"`)
	text = strings.TrimSpace(text)

	words := strings.Fields(text)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if strings.HasPrefix(word, "#") {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// CleanThread чистит все черновики и выбрасывает опустевшие.
func CleanThread(thread domain.Thread) domain.Thread {
	drafts := make([]domain.Draft, 0, len(thread.Drafts))
	for _, d := range thread.Drafts {
		d.Text = CleanTweet(d.Text)
		if d.Text == "" {
			continue
		}
		drafts = append(drafts, d)
	}
	return domain.Thread{Topic: thread.Topic, Drafts: drafts}
}

// FormatTimeline собирает таймлайн в текст промпта: свежие посты внизу,
// tweet_id сохраняется, чтобы модель могла сослаться на него цитатой.
func FormatTimeline(posts []domain.Post) string {
	var b strings.Builder
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		fmt.Fprintf(&b, "tweet_id:%s\n@%s:%s\n---\n", p.ID, p.AuthorUsername, p.Text)
	}
	return b.String()
}
