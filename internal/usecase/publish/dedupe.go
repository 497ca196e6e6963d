package publish

import "nate-bot/internal/domain"

// DedupQuotes убирает повторные цитаты в цепочке: один исходный пост
// может быть процитирован не более чем одним черновиком, выигрывает
// самое раннее вхождение. Генератор независимо выбирает цитаты для
// каждого твита и периодически ссылается на один и тот же пост дважды —
// публиковать это дословно значит получить сумбурный тред.
//
// Функция чистая: возвращает новую цепочку, вход не мутируется.
func DedupQuotes(thread domain.Thread) domain.Thread {
	out := domain.Thread{Topic: thread.Topic, Drafts: make([]domain.Draft, len(thread.Drafts))}
	seen := make(map[string]struct{})
	for i, draft := range thread.Drafts {
		if draft.QuoteTweetID != "" {
			if _, dup := seen[draft.QuoteTweetID]; dup {
				draft.QuoteTweetID = ""
			} else {
				seen[draft.QuoteTweetID] = struct{}{}
			}
		}
		out.Drafts[i] = draft
	}
	return out
}
