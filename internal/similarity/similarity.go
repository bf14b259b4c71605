// Package similarity grades a typed recollection against multiple reference
// translations. It is pure: no store, no clock, deterministic output.
package similarity

import (
	"strings"

	"github.com/ethanyoon/verseduel/internal/versebank"
)

// Score is one translation's grade.
type Score struct {
	Translation string `json:"translation"`
	Score       int    `json:"score"`
}

// Result is the full grading outcome for a submission.
type Result struct {
	BestScore       int     `json:"best_score"`
	BestTranslation string  `json:"best_translation"`
	Scores          []Score `json:"scores"`
	Feedback        string  `json:"feedback"`
}

// Feedback tier thresholds. Tuning knobs, not per-call-site literals.
const (
	TierPerfect = 95
	TierGreat   = 80
	TierGood    = 60
)

const (
	FeedbackPerfect  = "Perfect!"
	FeedbackGreat    = "Great job!"
	FeedbackGood     = "Good effort!"
	FeedbackPractice = "Keep practicing!"
)

// FeedbackFor maps a 0-100 score to its feedback tier.
func FeedbackFor(score int) string {
	switch {
	case score >= TierPerfect:
		return FeedbackPerfect
	case score >= TierGreat:
		return FeedbackGreat
	case score >= TierGood:
		return FeedbackGood
	default:
		return FeedbackPractice
	}
}

const punctuation = ".,!?;:'\"()-–—"

// Normalize lowercases, strips punctuation, and collapses whitespace.
// Normalizing an already-normalized string is a no-op.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if strings.ContainsRune(punctuation, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Words returns the normalized word sequence of text.
func Words(text string) []string {
	n := Normalize(text)
	if n == "" {
		return nil
	}
	return strings.Split(n, " ")
}

// wordDistance is Levenshtein edit distance counted over words, so word order
// and substitution matter but spelling slips within a word do not dominate.
func wordDistance(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j-1]+cost, cur[j-1]+1, prev[j]+1)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// ratio converts a word-level edit distance into a 0-100 percentage.
func ratio(input, ref []string) int {
	maxLen := len(input)
	if len(ref) > maxLen {
		maxLen = len(ref)
	}
	if maxLen == 0 {
		return 100
	}
	score := 100 - (100*wordDistance(input, ref))/maxLen
	if score < 0 {
		return 0
	}
	return score
}

// Grade scores input against each translation and returns the best match.
// Ties are broken by translation list order, first wins.
func Grade(input string, translations []versebank.Translation) Result {
	inputWords := Words(input)
	res := Result{Scores: make([]Score, 0, len(translations))}
	for i, tr := range translations {
		s := ratio(inputWords, Words(tr.Text))
		if len(inputWords) == 0 {
			s = 0
		}
		res.Scores = append(res.Scores, Score{Translation: tr.Name, Score: s})
		if i == 0 || s > res.BestScore {
			res.BestScore = s
			res.BestTranslation = tr.Name
		}
	}
	res.Feedback = FeedbackFor(res.BestScore)
	return res
}
