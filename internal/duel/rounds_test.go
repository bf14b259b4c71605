package duel

import (
	"strings"
	"testing"

	"github.com/ethanyoon/verseduel/internal/versebank"
)

func testVerse() *versebank.Verse {
	return &versebank.Verse{
		ID:        "proverbs-3-5",
		Reference: "Proverbs 3:5",
		Translations: []versebank.Translation{
			{Name: "ESV", Text: "Trust in the Lord with all your heart and do not lean on your own understanding"},
		},
	}
}

func TestGenerateBlanksShare(t *testing.T) {
	verse := testVerse()
	words := len(strings.Fields(verse.DisplayText()))
	cases := []struct {
		round int
		share float64
	}{
		{4, 0.3},
		{5, 0.5},
		{6, 0.7},
	}
	for _, c := range cases {
		pr := GenerateBlanks(verse, c.round)
		want := int(float64(words) * c.share)
		if want < 1 {
			want = 1
		}
		if len(pr.BlankIndices) != want {
			t.Errorf("round %d: %d blanks, want %d", c.round, len(pr.BlankIndices), want)
		}
		if len(pr.Expected) != len(pr.BlankIndices) {
			t.Errorf("round %d: %d expected tokens for %d blanks", c.round, len(pr.Expected), len(pr.BlankIndices))
		}
		for i := 1; i < len(pr.BlankIndices); i++ {
			if pr.BlankIndices[i-1] >= pr.BlankIndices[i] {
				t.Errorf("round %d: blank indices not strictly ascending: %v", c.round, pr.BlankIndices)
			}
		}
	}
}

func TestGenerateBlanksAtLeastOne(t *testing.T) {
	verse := &versebank.Verse{
		Reference: "John 11:35",
		Translations: []versebank.Translation{
			{Name: "KJV", Text: "Jesus wept."},
		},
	}
	pr := GenerateBlanks(verse, 4)
	if len(pr.BlankIndices) < 1 {
		t.Fatalf("short verse produced zero blanks")
	}
}

func TestParseProgressiveAnswerLenient(t *testing.T) {
	got := ParseProgressiveAnswer("1:faith bogus 2: x:y 3:grace 99:nope", 3)
	want := map[int]string{1: "faith", 3: "grace"}
	if len(got) != len(want) {
		t.Fatalf("parsed %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("parsed %v, want %v", got, want)
		}
	}
}

func TestScoreProgressiveRounding(t *testing.T) {
	pr := &ProgressiveRound{
		BlankIndices: []int{0, 2, 4},
		Expected:     []string{"faith", "hope", "grace"},
	}
	cases := []struct {
		input string
		want  int
	}{
		{"1:faith 3:grace", 67},
		{"1:faith", 33},
		{"1:faith 3:wrong", 33}, // only blank 1 matches
		{"1:faith 2:hope 3:grace", 100},
		{"", 0},
		{"complete nonsense", 0},
		{"1:FAITH 3:Grace!", 67}, // tokens are normalized before comparing
	}
	for _, c := range cases {
		if got := ScoreProgressive(c.input, pr); got != c.want {
			t.Errorf("ScoreProgressive(%q) = %d, want %d", c.input, got, c.want)
		}
	}
}

func TestScoreProgressiveNormalizesTokens(t *testing.T) {
	pr := &ProgressiveRound{Expected: []string{"Lord,", "heart"}}
	if got := ScoreProgressive("1:lord 2:HEART", pr); got != 100 {
		t.Fatalf("normalized tokens scored %d, want 100", got)
	}
}

func TestPromptTextNumbersBlanks(t *testing.T) {
	verse := testVerse()
	pr := &ProgressiveRound{BlankIndices: []int{0, 3}}
	got := pr.PromptText(verse)
	if !strings.HasPrefix(got, "___(1)___ in the ___(2)___ ") {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestBuildRoundPlanShape(t *testing.T) {
	bank, err := versebank.Load()
	if err != nil {
		t.Fatalf("versebank.Load: %v", err)
	}
	verses, modes := BuildRoundPlan(bank)
	if len(verses) != TotalRounds || len(modes) != TotalRounds {
		t.Fatalf("plan has %d verses / %d modes, want %d", len(verses), len(modes), TotalRounds)
	}
	for i, m := range modes {
		want := ModeTyping
		if i >= 3 {
			want = ModeProgressive
		}
		if m != want {
			t.Fatalf("round %d mode = %s, want %s", i+1, m, want)
		}
	}
}
