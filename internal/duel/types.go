package duel

import (
	"time"

	"github.com/ethanyoon/verseduel/internal/versebank"
)

// Status represents a room's game lifecycle state.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusCountdown    Status = "countdown"
	StatusPlaying      Status = "playing"
	StatusRoundResults Status = "round_results"
	StatusFinalResults Status = "final_results"
)

// RoundMode selects how the active round is answered and scored.
type RoundMode string

const (
	ModeTyping      RoundMode = "typing"
	ModeProgressive RoundMode = "progressive"
)

// Round timing constants. Deadlines are enforced by each client's own timer;
// the store-level finalize precondition is what actually closes a round.
const (
	TotalRounds         = 6
	CountdownSeconds    = 3
	TypingSeconds       = 90
	ProgressiveSeconds  = 60
)

// DeadlineFor returns the answer deadline for a round mode.
func DeadlineFor(mode RoundMode) time.Duration {
	if mode == ModeProgressive {
		return ProgressiveSeconds * time.Second
	}
	return TypingSeconds * time.Second
}

// ProgressiveRound holds the blank-fill layout for a progressive round.
// Expected tokens are taken from the verse's first translation; both clients
// read this from the room document so they render identical blanks.
type ProgressiveRound struct {
	BlankIndices    []int    `json:"blank_indices"`
	BlankPercentage int      `json:"blank_percentage"`
	Expected        []string `json:"expected"`
}

// Player is one participant's state nested under the room document.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
	IsReady  bool      `json:"is_ready"`

	// CurrentRoundFinishedAt is write-once per round; its presence is the
	// single source of truth for "has submitted".
	CurrentRoundFinishedAt  *time.Time `json:"current_round_finished_at,omitempty"`
	CurrentRoundScore       int        `json:"current_round_score"`
	CurrentRoundAnswer      string     `json:"current_round_answer"`
	CurrentRoundTranslation string     `json:"current_round_translation"`

	TotalScore  int   `json:"total_score"`
	RoundScores []int `json:"round_scores"`
}

// Finished reports whether the player has submitted for the active round.
func (p *Player) Finished() bool { return p != nil && p.CurrentRoundFinishedAt != nil }

// PlayerResult is one player's finalized snapshot inside a RoundResult.
type PlayerResult struct {
	Answer      string `json:"answer"`
	Score       int    `json:"score"`
	Translation string `json:"translation"`
}

// RoundResult is the immutable outcome of one round. Written at most once.
type RoundResult struct {
	Round        int                     `json:"round"`
	VisibleVerse string                  `json:"visible_verse"`
	Players      map[string]PlayerResult `json:"players"`
}

// Room is the shared session document for one two-player match. It is the
// only shared resource between the two clients; every one-time transition on
// it must be guarded by a store-level precondition.
type Room struct {
	Code        string             `json:"code"`
	HostID      string             `json:"host_id"`
	Status      Status             `json:"status"`
	Players     map[string]*Player `json:"players"`
	CurrentRound int               `json:"current_round"`
	TotalRounds  int               `json:"total_rounds"`

	Verses       []versebank.Verse `json:"verses"`
	CurrentVerse *versebank.Verse  `json:"current_verse,omitempty"`
	RoundModes   []RoundMode       `json:"round_modes"`

	ProgressiveData *ProgressiveRound   `json:"progressive_data,omitempty"`
	RoundResults    map[int]RoundResult `json:"round_results,omitempty"`

	CreatedAt          time.Time  `json:"created_at"`
	CountdownStartedAt *time.Time `json:"countdown_started_at,omitempty"`
	PlayingStartedAt   *time.Time `json:"playing_started_at,omitempty"`
}

// Mode returns the mode configured for a 1-indexed round.
func (r *Room) Mode(round int) RoundMode {
	if r == nil || round < 1 || round > len(r.RoundModes) {
		return ModeTyping
	}
	return r.RoundModes[round-1]
}

// AllReady reports whether the room is full and every player readied up.
func (r *Room) AllReady() bool {
	if r == nil || len(r.Players) < 2 {
		return false
	}
	for _, p := range r.Players {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// AllFinished reports whether every present player has submitted an answer
// for the active round.
func (r *Room) AllFinished() bool {
	if r == nil || len(r.Players) == 0 {
		return false
	}
	for _, p := range r.Players {
		if !p.Finished() {
			return false
		}
	}
	return true
}

// Opponent returns the other player, or nil when alone.
func (r *Room) Opponent(playerID string) *Player {
	for id, p := range r.Players {
		if id != playerID {
			return p
		}
	}
	return nil
}

// Winners returns the player(s) holding the highest total score.
func (r *Room) Winners() []*Player {
	var best int
	found := false
	for _, p := range r.Players {
		if !found || p.TotalScore > best {
			best = p.TotalScore
			found = true
		}
	}
	if !found {
		return nil
	}
	var out []*Player
	for _, p := range r.Players {
		if p.TotalScore == best {
			out = append(out, p)
		}
	}
	return out
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

// Errors surfaced to adapters. Failed transition preconditions are not
// errors; those surface as applied=false from the store.
var (
	ErrInvalidArgs    = staticErr("invalid arguments")
	ErrNotFound       = staticErr("room not found or expired")
	ErrRoomFull       = staticErr("room already has two players")
	ErrNotHost        = staticErr("only the host may advance the round")
	ErrGameInProgress = staticErr("game already in progress")
)
