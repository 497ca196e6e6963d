package engage

import (
	"github.com/rs/zerolog"

	"nate-bot/internal/domain"
)

// Беседы длиннее этого порога бот не продолжает: в шумных ветках ответ
// теряется. Число подобрано вручную.
const maxConversationPosts = 5

// NeedsReply решает, должен ли бот ответить в беседе. Чистая функция от
// снимка агрегата: никакого I/O и скрытого состояния.
//
// Правила в порядке приоритета:
//  1. беседа длиннее maxConversationPosts — не отвечаем;
//  2. последнее слово уже за ботом — не отвечаем;
//  3. иначе отвечаем.
//
// Пустая беседа не должна сюда попадать (precondition): формально правило 3
// вернуло бы true, поэтому Pending отсеивает такие агрегаты заранее.
func NeedsReply(conv *domain.Conversation) bool {
	if len(conv.Posts) > maxConversationPosts {
		return false
	}
	if !conv.OwnLastPostTime.IsZero() && !conv.OwnLastPostTime.Before(conv.LastPostTime) {
		return false
	}
	return true
}

// Pending возвращает подмножество бесед, требующих ответа, в порядке
// появления во входном наборе.
func Pending(set ConversationSet, logger zerolog.Logger) ConversationSet {
	out := ConversationSet{Items: make(map[string]*domain.Conversation)}
	for _, id := range set.Order {
		conv, ok := set.Items[id]
		if !ok {
			continue
		}
		if len(conv.Posts) == 0 {
			logger.Warn().Str("conversation_id", id).Msg("пустая беседа в наборе, пропускаем")
			continue
		}
		if !NeedsReply(conv) {
			continue
		}
		out.Order = append(out.Order, id)
		out.Items[id] = conv
	}
	return out
}
