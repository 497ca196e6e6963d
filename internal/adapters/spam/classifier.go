package spam

import (
	"strings"
	"unicode"

	"nate-bot/internal/domain"
)

// Пороговые значения подобраны вручную; это эвристика, а не гарантия.
const (
	scoreThreshold   = 3.0
	linkScoreCap     = 2.0
	mentionScoreCap  = 2.0
	freeMentions     = 2
	mentionScoreStep = 0.5
	digitNameScore   = 0.5
)

// spamPhrases — фиксированный набор фраз, типичных для крипто-спама.
var spamPhrases = []string{
	"airdrop",
	"giveaway",
	"claim",
	"lfg",
	"token distribution",
	"biggest",
}

// Classifier реализует domain.SpamClassifier по лексическим эвристикам.
type Classifier struct{}

// NewClassifier создаёт классификатор.
func NewClassifier() *Classifier {
	return &Classifier{}
}

var _ domain.SpamClassifier = (*Classifier)(nil)

// IsSpam возвращает true, если суммарный балл поста достигает порога.
func (c *Classifier) IsSpam(post domain.Post) bool {
	return Score(post.Text, post.AuthorUsername) >= scoreThreshold
}

// Score накапливает спам-балл из независимых эвристик. Добавление ссылки,
// упоминания или спам-фразы к тексту никогда не уменьшает балл.
func Score(text, username string) float64 {
	lower := strings.ToLower(text)
	score := 0.0

	links := float64(strings.Count(lower, "http://") + strings.Count(lower, "https://"))
	if links > linkScoreCap {
		links = linkScoreCap
	}
	score += links

	mentions := countMentions(text)
	if mentions > freeMentions {
		extra := float64(mentions-freeMentions) * mentionScoreStep
		if extra > mentionScoreCap {
			extra = mentionScoreCap
		}
		score += extra
	}

	for _, phrase := range spamPhrases {
		score += float64(strings.Count(lower, phrase))
	}

	if strings.ContainsFunc(username, unicode.IsDigit) {
		score += digitNameScore
	}

	return score
}

func countMentions(text string) int {
	count := 0
	for _, word := range strings.Fields(text) {
		if len(word) > 1 && strings.HasPrefix(word, "@") {
			count++
		}
	}
	return count
}
