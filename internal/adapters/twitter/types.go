package twitter

import (
	"time"

	"nate-bot/internal/domain"
)

// Сырые структуры ответов X API v2. Разбираются и проверяются сразу на
// границе, до того как данные попадут в доменную логику.

type tweetObject struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	AuthorID         string            `json:"author_id"`
	ConversationID   string            `json:"conversation_id"`
	CreatedAt        time.Time         `json:"created_at"`
	ReferencedTweets []referencedTweet `json:"referenced_tweets,omitempty"`
}

type referencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

const (
	refTypeRepliedTo = "replied_to"
	refTypeQuoted    = "quoted"
)

type userObject struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type tweetsResponse struct {
	Data     []tweetObject `json:"data"`
	Includes struct {
		Users []userObject `json:"users"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

type userResponse struct {
	Data userObject `json:"data"`
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
	QuoteTweetID string `json:"quote_tweet_id,omitempty"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type apiErrorResponse struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// toPosts превращает ответ платформы в доменные посты, подставляя
// username автора из блока includes.
func (r tweetsResponse) toPosts() []domain.Post {
	users := make(map[string]userObject, len(r.Includes.Users))
	for _, u := range r.Includes.Users {
		users[u.ID] = u
	}

	posts := make([]domain.Post, 0, len(r.Data))
	for _, t := range r.Data {
		post := domain.Post{
			ID:             t.ID,
			Text:           t.Text,
			AuthorID:       t.AuthorID,
			ConversationID: t.ConversationID,
			CreatedAt:      t.CreatedAt,
		}
		if u, ok := users[t.AuthorID]; ok {
			post.AuthorUsername = u.Username
		}
		for _, ref := range t.ReferencedTweets {
			switch ref.Type {
			case refTypeRepliedTo:
				post.InReplyToID = ref.ID
			case refTypeQuoted:
				post.QuoteTweetID = ref.ID
			}
		}
		posts = append(posts, post)
	}
	return posts
}
