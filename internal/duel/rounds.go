package duel

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/ethanyoon/verseduel/internal/similarity"
	"github.com/ethanyoon/verseduel/internal/versebank"
)

const typingRoundCount = 3

// blankShare maps a 1-indexed round number to the fraction of words blanked
// in progressive mode. Rounds ramp up: 30%, 50%, 70%.
var blankShare = map[int]float64{4: 0.3, 5: 0.5, 6: 0.7}

// BuildRoundPlan selects the verses and per-round modes for a whole game.
// The plan is frozen at room creation so both clients derive the same rounds
// without coordination: three free-typing verses, then one progressive verse
// per difficulty tier.
func BuildRoundPlan(bank *versebank.Bank) ([]versebank.Verse, []RoundMode) {
	verses := bank.PickTyping(typingRoundCount)
	verses = append(verses, bank.PickProgressive()...)
	modes := make([]RoundMode, 0, len(verses))
	for i := range verses {
		if i < typingRoundCount {
			modes = append(modes, ModeTyping)
		} else {
			modes = append(modes, ModeProgressive)
		}
	}
	return verses, modes
}

// GenerateBlanks picks the blanked word positions for a progressive round.
// Expected tokens come from the verse's primary translation. At least one
// word is always blanked.
func GenerateBlanks(verse *versebank.Verse, round int) *ProgressiveRound {
	words := strings.Fields(verse.DisplayText())
	if len(words) == 0 {
		return &ProgressiveRound{}
	}
	share, ok := blankShare[round]
	if !ok {
		share = 0.3
	}
	count := int(float64(len(words)) * share)
	if count < 1 {
		count = 1
	}
	indices := rand.Perm(len(words))[:count]
	sort.Ints(indices)

	expected := make([]string, 0, count)
	for _, i := range indices {
		expected = append(expected, words[i])
	}
	return &ProgressiveRound{
		BlankIndices:    indices,
		BlankPercentage: int(share*100 + 0.5),
		Expected:        expected,
	}
}

// ParseProgressiveAnswer extracts `index:token` pairs from a submission.
// Indexes are 1-based blank numbers. Malformed fragments are dropped rather
// than rejected; a fully malformed answer simply matches zero blanks.
func ParseProgressiveAnswer(input string, total int) map[int]string {
	answers := make(map[int]string)
	for _, field := range strings.Fields(input) {
		idxStr, token, ok := strings.Cut(field, ":")
		if !ok || token == "" {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(idxStr))
		if err != nil || idx < 1 || idx > total {
			continue
		}
		answers[idx] = token
	}
	return answers
}

// ScoreProgressive grades a blank-fill submission: correct blanks over total
// blanks as a 0-100 percentage, rounded to nearest. Any blank the player did
// not address counts as incorrect.
func ScoreProgressive(input string, pr *ProgressiveRound) int {
	if pr == nil || len(pr.Expected) == 0 {
		return 0
	}
	answers := ParseProgressiveAnswer(input, len(pr.Expected))
	correct := 0
	for i, want := range pr.Expected {
		got, ok := answers[i+1]
		if !ok {
			continue
		}
		if similarity.Normalize(got) == similarity.Normalize(want) {
			correct++
		}
	}
	total := len(pr.Expected)
	return (correct*200 + total) / (2 * total)
}

// PromptText renders the verse's primary translation with numbered blanks,
// e.g. "Trust in the ___(1)___ with all your heart".
func (pr *ProgressiveRound) PromptText(verse *versebank.Verse) string {
	words := strings.Fields(verse.DisplayText())
	blanked := make(map[int]int, len(pr.BlankIndices)) // word index -> blank number
	for n, i := range pr.BlankIndices {
		blanked[i] = n + 1
	}
	out := make([]string, len(words))
	for i, w := range words {
		if n, ok := blanked[i]; ok {
			out[i] = "___(" + strconv.Itoa(n) + ")___"
		} else {
			out[i] = w
		}
	}
	return strings.Join(out, " ")
}
