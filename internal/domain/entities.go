package domain

import "time"

// Post представляет один твит, полученный с платформы или созданный ботом.
// Запись неизменяема после создания: повторные выборки делают upsert по ID.
type Post struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorUsername string
	ConversationID string
	InReplyToID    string
	QuoteTweetID   string
	CreatedAt      time.Time
	FetchedForUser string
}

// IsRoot сообщает, является ли пост корнем своей беседы.
func (p Post) IsRoot() bool {
	return p.InReplyToID == "" && (p.ConversationID == "" || p.ConversationID == p.ID)
}

// Account описывает учётную запись бота на платформе.
type Account struct {
	ID       string
	Username string
}

// Conversation — производный агрегат: все известные посты одной беседы.
// Агрегат не сохраняется в БД и пересобирается при каждой проверке.
type Conversation struct {
	ID              string
	Posts           map[string]Post
	Participants    map[string]struct{}
	LastPostTime    time.Time
	OwnLastPostTime time.Time
}

// NewConversation создаёт пустой агрегат беседы.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:           id,
		Posts:        make(map[string]Post),
		Participants: make(map[string]struct{}),
	}
}

// Fold вливает пост в агрегат: insert-or-update по ID поста.
// Порядок fold не влияет на итоговое состояние, кроме правила
// «существующая запись не даёт уменьшить CreatedAt и не теряет FetchedForUser».
func (c *Conversation) Fold(post Post, ownUsername string) {
	if existing, ok := c.Posts[post.ID]; ok {
		if post.CreatedAt.Before(existing.CreatedAt) {
			post.CreatedAt = existing.CreatedAt
		}
		if post.FetchedForUser == "" {
			post.FetchedForUser = existing.FetchedForUser
		}
	}
	c.Posts[post.ID] = post

	if post.AuthorUsername != "" {
		c.Participants[post.AuthorUsername] = struct{}{}
	}
	if post.CreatedAt.After(c.LastPostTime) {
		c.LastPostTime = post.CreatedAt
	}
	if ownUsername != "" && post.AuthorUsername == ownUsername && post.CreatedAt.After(c.OwnLastPostTime) {
		c.OwnLastPostTime = post.CreatedAt
	}
}

// Newest возвращает самый свежий пост беседы.
func (c *Conversation) Newest() (Post, bool) {
	var newest Post
	found := false
	for _, p := range c.Posts {
		if !found || p.CreatedAt.After(newest.CreatedAt) {
			newest = p
			found = true
		}
	}
	return newest, found
}

// Draft — черновик твита до публикации: ID ещё не присвоен платформой,
// есть только текст и необязательная цитата существующего поста.
type Draft struct {
	Text         string
	QuoteTweetID string
}

// Thread — упорядоченная последовательность черновиков одной публикации.
// Цепочкой владеет вызывающий workflow; после публикации она выбрасывается.
type Thread struct {
	Topic  string
	Drafts []Draft
}

// Action задаёт тип генерации контента.
type Action string

const (
	// ActionSingle — одиночный твит по мотивам таймлайна.
	ActionSingle Action = "single"
	// ActionThread — тред из нескольких твитов.
	ActionThread Action = "thread"
	// ActionReply — ответ в конкретной беседе.
	ActionReply Action = "reply"
)

// MarketSnapshot — срез рыночных данных для промпта генератора.
type MarketSnapshot struct {
	Trending          []string
	TotalMarketCapUSD float64
	BTCDominance      float64
	FetchedAt         time.Time
}
