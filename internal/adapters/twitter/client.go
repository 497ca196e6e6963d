package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/ratelimit"

	"nate-bot/internal/domain"
	"nate-bot/internal/infra/metrics"
)

const defaultBaseURL = "https://api.x.com"

const tweetFields = "author_id,conversation_id,created_at,referenced_tweets"

// Client — REST-клиент X API v2, реализует domain.TwitterGateway.
// Все запросы проходят через локальный rate limiter: платформа жёстко
// ограничивает частоту, и проще не доводить до 429.
type Client struct {
	http    *http.Client
	baseURL string
	bearer  string
	rl      ratelimit.Limiter
}

// NewClient создаёт клиента платформы.
func NewClient(bearer, baseURL string, timeout time.Duration, rps int) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if rps <= 0 {
		rps = 1
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		bearer:  bearer,
		rl:      ratelimit.New(rps),
	}
}

var _ domain.TwitterGateway = (*Client)(nil)

// Me возвращает учётную запись бота.
func (c *Client) Me(ctx context.Context) (domain.Account, error) {
	var resp userResponse
	if err := c.doGet(ctx, "/2/users/me", nil, "users_me", &resp); err != nil {
		return domain.Account{}, err
	}
	if resp.Data.ID == "" {
		return domain.Account{}, fmt.Errorf("x: users/me: empty account in response")
	}
	return domain.Account{ID: resp.Data.ID, Username: resp.Data.Username}, nil
}

// FetchTimeline выгружает домашнюю ленту с обратным хронологическим порядком.
func (c *Client) FetchTimeline(ctx context.Context, max int) ([]domain.Post, error) {
	account, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("tweet.fields", tweetFields)
	q.Set("expansions", "author_id")
	if max > 0 {
		q.Set("max_results", strconv.Itoa(max))
	}
	var resp tweetsResponse
	path := fmt.Sprintf("/2/users/%s/timelines/reverse_chronological", url.PathEscape(account.ID))
	if err := c.doGet(ctx, path, q, "timeline", &resp); err != nil {
		return nil, err
	}
	return resp.toPosts(), nil
}

// FetchMentions выгружает упоминания пользователя начиная с указанного момента.
func (c *Client) FetchMentions(ctx context.Context, userID string, since time.Time) ([]domain.Post, error) {
	if userID == "" {
		return nil, fmt.Errorf("x: mentions: user id is empty")
	}
	q := url.Values{}
	q.Set("tweet.fields", tweetFields)
	q.Set("expansions", "author_id")
	if !since.IsZero() {
		q.Set("start_time", since.UTC().Format(time.RFC3339))
	}
	var resp tweetsResponse
	path := fmt.Sprintf("/2/users/%s/mentions", url.PathEscape(userID))
	if err := c.doGet(ctx, path, q, "mentions", &resp); err != nil {
		return nil, err
	}
	posts := resp.toPosts()
	metrics.MentionsFetched.Add(float64(len(posts)))
	return posts, nil
}

// FetchConversation выгружает все посты беседы одним батчем.
func (c *Client) FetchConversation(ctx context.Context, conversationID string) ([]domain.Post, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("x: conversation id is empty")
	}
	q := url.Values{}
	q.Set("query", "conversation_id:"+conversationID)
	q.Set("tweet.fields", tweetFields)
	q.Set("expansions", "author_id")
	q.Set("max_results", "100")
	var resp tweetsResponse
	if err := c.doGet(ctx, "/2/tweets/search/recent", q, "conversation", &resp); err != nil {
		return nil, err
	}
	return resp.toPosts(), nil
}

// CreatePost публикует твит. inReplyToID и quoteTweetID необязательны.
func (c *Client) CreatePost(ctx context.Context, text, inReplyToID, quoteTweetID string) (string, error) {
	req := createTweetRequest{Text: text, QuoteTweetID: quoteTweetID}
	if inReplyToID != "" {
		req.Reply = &struct {
			InReplyToTweetID string `json:"in_reply_to_tweet_id"`
		}{InReplyToTweetID: inReplyToID}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("x: marshal tweet: %w", err)
	}

	c.rl.Take()
	endpoint := c.baseURL + "/2/tweets"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("x: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.bearer)

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.ObserveNetworkRequest("x", "create_tweet", "tweets", start, err)
		return "", fmt.Errorf("x: do request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("x", "create_tweet", "tweets", start, err)
		return "", fmt.Errorf("x: read response: %w", err)
	}
	if httpResp.StatusCode >= 400 {
		platformErr := platformError(httpResp.StatusCode, respBody)
		metrics.ObserveNetworkRequest("x", "create_tweet", "tweets", start, platformErr)
		return "", platformErr
	}
	var created createTweetResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		metrics.ObserveNetworkRequest("x", "create_tweet", "tweets", start, err)
		return "", fmt.Errorf("x: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("x", "create_tweet", "tweets", start, nil)
	if created.Data.ID == "" {
		return "", fmt.Errorf("x: create tweet: empty id in response")
	}
	return created.Data.ID, nil
}

func (c *Client) doGet(ctx context.Context, path string, query url.Values, operation string, out any) error {
	c.rl.Take()
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("x: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("x", operation, path, start, err)
		return fmt.Errorf("x: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("x", operation, path, start, err)
		return fmt.Errorf("x: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		platformErr := platformError(resp.StatusCode, body)
		metrics.ObserveNetworkRequest("x", operation, path, start, platformErr)
		return platformErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.ObserveNetworkRequest("x", operation, path, start, err)
		return fmt.Errorf("x: decode response: %w", err)
	}
	metrics.ObserveNetworkRequest("x", operation, path, start, nil)
	return nil
}

func platformError(status int, body []byte) *domain.PlatformError {
	var apiErr apiErrorResponse
	message := ""
	if err := json.Unmarshal(body, &apiErr); err == nil {
		message = strings.TrimSpace(strings.TrimSpace(apiErr.Title + " " + apiErr.Detail))
	}
	return &domain.PlatformError{StatusCode: status, Message: message}
}
