package similarity

import (
	"testing"

	"github.com/ethanyoon/verseduel/internal/versebank"
)

const john316 = "For God so loved the world, that he gave his only Son, that whoever believes in him should not perish but have eternal life."

func TestNormalizeIdempotent(t *testing.T) {
	in := "  For GOD so loved... the WORLD!  "
	once := Normalize(in)
	twice := Normalize(once)
	if once != twice {
		t.Fatalf("normalize not idempotent: %q vs %q", once, twice)
	}
	if once != "for god so loved the world" {
		t.Fatalf("unexpected normalization: %q", once)
	}
}

func TestGradeDeterministic(t *testing.T) {
	trs := []versebank.Translation{{Name: "ESV", Text: john316}}
	input := "For God so loved the world that he gave his only Son"
	first := Grade(input, trs)
	for i := 0; i < 5; i++ {
		if got := Grade(input, trs); got.BestScore != first.BestScore {
			t.Fatalf("grade not deterministic: %d vs %d", got.BestScore, first.BestScore)
		}
	}
}

func TestGradeExactMatch(t *testing.T) {
	trs := []versebank.Translation{{Name: "ESV", Text: john316}}
	res := Grade(john316, trs)
	if res.BestScore != 100 {
		t.Fatalf("exact match scored %d, want 100", res.BestScore)
	}
	if res.Feedback != FeedbackPerfect {
		t.Fatalf("feedback = %q, want %q", res.Feedback, FeedbackPerfect)
	}
}

func TestGradeCaseAndPunctuationInsensitive(t *testing.T) {
	trs := []versebank.Translation{{Name: "ESV", Text: john316}}
	res := Grade("for god so loved the world that he gave his only son that whoever believes in him should not perish but have eternal life", trs)
	if res.BestScore != 100 {
		t.Fatalf("normalized match scored %d, want 100", res.BestScore)
	}
}

func TestGradePartialBetweenZeroAndHundred(t *testing.T) {
	trs := []versebank.Translation{{Name: "ESV", Text: john316}}
	res := Grade("For God so loved the world", trs)
	if res.BestScore <= 0 || res.BestScore >= 100 {
		t.Fatalf("partial recall scored %d, want 0 < score < 100", res.BestScore)
	}
}

func TestGradeEmptyInput(t *testing.T) {
	trs := []versebank.Translation{
		{Name: "ESV", Text: john316},
		{Name: "KJV", Text: "For God so loved the world, that he gave his only begotten Son"},
	}
	res := Grade("", trs)
	if res.BestScore != 0 {
		t.Fatalf("empty input scored %d, want 0", res.BestScore)
	}
	if res.Feedback != FeedbackPractice {
		t.Fatalf("feedback = %q, want %q", res.Feedback, FeedbackPractice)
	}
	for _, s := range res.Scores {
		if s.Score != 0 {
			t.Fatalf("translation %s scored %d for empty input, want 0", s.Translation, s.Score)
		}
	}
}

func TestGradeTieBreakFirstWins(t *testing.T) {
	// Identical texts under two names: the earlier entry must win the tie.
	trs := []versebank.Translation{
		{Name: "ESV", Text: "In the beginning God created the heavens and the earth."},
		{Name: "NIV", Text: "In the beginning God created the heavens and the earth."},
	}
	res := Grade("In the beginning God created the heavens and the earth.", trs)
	if res.BestTranslation != "ESV" {
		t.Fatalf("tie broken to %q, want ESV (list order)", res.BestTranslation)
	}
}

func TestGradePicksBestTranslation(t *testing.T) {
	trs := []versebank.Translation{
		{Name: "ESV", Text: "completely different words entirely here now"},
		{Name: "KJV", Text: "Trust in the LORD with all thine heart"},
	}
	res := Grade("Trust in the LORD with all thine heart", trs)
	if res.BestTranslation != "KJV" || res.BestScore != 100 {
		t.Fatalf("best = %s/%d, want KJV/100", res.BestTranslation, res.BestScore)
	}
}

func TestFeedbackTiers(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, FeedbackPerfect},
		{95, FeedbackPerfect},
		{94, FeedbackGreat},
		{80, FeedbackGreat},
		{79, FeedbackGood},
		{60, FeedbackGood},
		{59, FeedbackPractice},
		{0, FeedbackPractice},
	}
	for _, c := range cases {
		if got := FeedbackFor(c.score); got != c.want {
			t.Errorf("FeedbackFor(%d) = %q, want %q", c.score, got, c.want)
		}
	}
}

func TestWordDistanceFloorsAtZero(t *testing.T) {
	// Input wildly longer than the reference must clamp, not go negative.
	ref := []versebank.Translation{{Name: "ESV", Text: "Jesus wept."}}
	res := Grade("this answer has a great many words none of which appear in the reference text at all whatsoever", ref)
	if res.BestScore != 0 {
		t.Fatalf("scored %d, want clamped 0", res.BestScore)
	}
}
