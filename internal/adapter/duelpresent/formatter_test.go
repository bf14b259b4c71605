package duelpresent

import (
	"strings"
	"testing"
	"time"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/msgcat"
	"github.com/ethanyoon/verseduel/internal/versebank"
)

func newFormatter(t *testing.T) *Formatter {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	return NewFormatter(cat)
}

func testRoom() *duel.Room {
	now := time.Now()
	verse := &versebank.Verse{
		Reference: "Proverbs 3:5",
		Translations: []versebank.Translation{
			{Name: "ESV", Text: "Trust in the Lord with all your heart"},
		},
	}
	return &duel.Room{
		Code:   "AB23CD",
		HostID: "p1",
		Status: duel.StatusWaiting,
		Players: map[string]*duel.Player{
			"p1": {ID: "p1", Name: "Alice", JoinedAt: now},
			"p2": {ID: "p2", Name: "Bob", JoinedAt: now.Add(time.Second)},
		},
		CurrentRound: 1,
		TotalRounds:  duel.TotalRounds,
		RoundModes: []duel.RoundMode{
			duel.ModeTyping, duel.ModeTyping, duel.ModeTyping,
			duel.ModeProgressive, duel.ModeProgressive, duel.ModeProgressive,
		},
		CurrentVerse: verse,
		CreatedAt:    now,
	}
}

func TestWaitingRoomListsJoinOrder(t *testing.T) {
	f := newFormatter(t)
	room := testRoom()
	room.Players["p2"].IsReady = true
	out := f.WaitingRoom(room)
	alice := strings.Index(out, "Alice")
	bob := strings.Index(out, "Bob")
	if alice < 0 || bob < 0 || alice > bob {
		t.Fatalf("players not listed in join order:\n%s", out)
	}
	if !strings.Contains(out, "Bob (ready)") {
		t.Fatalf("ready mark missing:\n%s", out)
	}
	if !strings.Contains(out, "1/2 ready") {
		t.Fatalf("ready tally missing:\n%s", out)
	}
}

func TestRoundPromptTyping(t *testing.T) {
	f := newFormatter(t)
	room := testRoom()
	room.Status = duel.StatusPlaying
	out := f.RoundPrompt(room)
	if !strings.Contains(out, "Proverbs 3:5") {
		t.Fatalf("reference missing:\n%s", out)
	}
	if !strings.Contains(out, "90 seconds") {
		t.Fatalf("typing deadline missing:\n%s", out)
	}
	if strings.Contains(out, "Trust in the Lord") {
		t.Fatalf("typing prompt leaked the verse text:\n%s", out)
	}
}

func TestRoundPromptProgressive(t *testing.T) {
	f := newFormatter(t)
	room := testRoom()
	room.Status = duel.StatusPlaying
	room.CurrentRound = 4
	room.ProgressiveData = &duel.ProgressiveRound{
		BlankIndices:    []int{0, 4},
		BlankPercentage: 30,
		Expected:        []string{"Trust", "with"},
	}
	out := f.RoundPrompt(room)
	if !strings.Contains(out, "___(1)___") || !strings.Contains(out, "___(2)___") {
		t.Fatalf("numbered blanks missing:\n%s", out)
	}
	if !strings.Contains(out, "60 seconds") {
		t.Fatalf("progressive deadline missing:\n%s", out)
	}
}

func TestFinalResultsWinnerAndTie(t *testing.T) {
	f := newFormatter(t)
	room := testRoom()
	room.Players["p1"].TotalScore = 250
	room.Players["p2"].TotalScore = 180
	out := f.FinalResults(room)
	if !strings.Contains(out, "Alice wins!") {
		t.Fatalf("winner missing:\n%s", out)
	}
	if !strings.Contains(out, "1. Alice - 250 points") {
		t.Fatalf("scoreboard order wrong:\n%s", out)
	}

	room.Players["p2"].TotalScore = 250
	out = f.FinalResults(room)
	if !strings.Contains(out, "It's a tie!") {
		t.Fatalf("tie missing:\n%s", out)
	}
}

func TestRoundResultsShowsAnswersAndTotals(t *testing.T) {
	f := newFormatter(t)
	room := testRoom()
	room.Status = duel.StatusRoundResults
	room.Players["p1"].TotalScore = 85
	room.RoundResults = map[int]duel.RoundResult{
		1: {
			Round:        1,
			VisibleVerse: "Trust in the Lord with all your heart",
			Players: map[string]duel.PlayerResult{
				"p1": {Answer: "Trust in the Lord", Score: 85, Translation: "ESV"},
				"p2": {Answer: "", Score: 0, Translation: "ESV"},
			},
		},
	}
	out := f.RoundResults(room)
	if !strings.Contains(out, "85 points (total 85)") {
		t.Fatalf("score line missing:\n%s", out)
	}
	if !strings.Contains(out, "(no answer)") {
		t.Fatalf("empty answer placeholder missing:\n%s", out)
	}
	if !strings.Contains(out, "/next") {
		t.Fatalf("host prompt missing:\n%s", out)
	}
}

func TestErrorTextMapping(t *testing.T) {
	f := newFormatter(t)
	cases := []struct {
		err  error
		want string
	}{
		{duel.ErrNotFound, "Room not found"},
		{duel.ErrRoomFull, "two players"},
		{duel.ErrGameInProgress, "in progress"},
		{duel.ErrNotHost, "host"},
		{duel.ErrInvalidArgs, "try again"}, // falls through to the store message
	}
	for _, c := range cases {
		if got := f.ErrorText(c.err); !strings.Contains(got, c.want) {
			t.Errorf("ErrorText(%v) = %q, want substring %q", c.err, got, c.want)
		}
	}
}
