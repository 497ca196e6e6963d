package spam

import (
	"testing"

	"nate-bot/internal/domain"
)

func TestIsSpamBenignPost(t *testing.T) {
	c := NewClassifier()
	post := domain.Post{
		Text:           "интересный тейк про распределённые системы, согласен",
		AuthorUsername: "alice",
	}
	if c.IsSpam(post) {
		t.Fatalf("обычный пост не должен считаться спамом")
	}
}

func TestIsSpamTypicalCryptoSpam(t *testing.T) {
	c := NewClassifier()
	post := domain.Post{
		Text:           "Biggest airdrop ever! Claim now https://scam.example https://scam2.example",
		AuthorUsername: "promo12345",
	}
	if !c.IsSpam(post) {
		t.Fatalf("ожидали, что пост будет отброшен как спам")
	}
}

func TestScoreLinkCap(t *testing.T) {
	one := Score("see https://a.example", "user")
	three := Score("see https://a.example https://b.example https://c.example", "user")
	if one != 1 {
		t.Fatalf("ожидали балл 1 за одну ссылку, получили %v", one)
	}
	if three != 2 {
		t.Fatalf("балл за ссылки ограничен двумя, получили %v", three)
	}
}

func TestScoreMentions(t *testing.T) {
	if got := Score("@a @b hello", "user"); got != 0 {
		t.Fatalf("два упоминания бесплатны, получили %v", got)
	}
	if got := Score("@a @b @c @d hello", "user"); got != 1 {
		t.Fatalf("ожидали 1 за два лишних упоминания, получили %v", got)
	}
}

func TestScoreDigitsInUsername(t *testing.T) {
	if got := Score("hello", "user42"); got != 0.5 {
		t.Fatalf("ожидали 0.5 за цифры в имени, получили %v", got)
	}
}

func TestScoreMonotonic(t *testing.T) {
	base := "nice thread"
	additions := []string{
		base + " https://a.example",
		base + " airdrop",
		base + " @a @b @c",
		base + " giveaway claim",
	}
	baseScore := Score(base, "user")
	for _, text := range additions {
		if Score(text, "user") < baseScore {
			t.Fatalf("добавление спам-признака не должно уменьшать балл: %q", text)
		}
	}
}
