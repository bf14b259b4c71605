// Package duelpresent renders room state into user-facing text through the
// message catalog. Both client adapters share it so the two surfaces speak
// the same language.
package duelpresent

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/msgcat"
	"github.com/ethanyoon/verseduel/internal/obslog"
)

type Formatter struct {
	cat *msgcat.Catalog
}

func NewFormatter(cat *msgcat.Catalog) *Formatter { return &Formatter{cat: cat} }

func (f *Formatter) render(key string, data any, fallback string) string {
	out, err := f.cat.Render(key, data)
	if err != nil {
		obslog.L().Warn("msgcat_render_error", zap.String("key", key), zap.Error(err))
		return fallback
	}
	return out
}

func (f *Formatter) Welcome() string {
	return f.render("help.welcome", map[string]any{"TotalRounds": duel.TotalRounds}, "Use /newgame to start a duel.")
}

func (f *Formatter) Help() string {
	return f.render("help.full", map[string]any{"TotalRounds": duel.TotalRounds}, "Commands: /newgame /join /leave /ready /next")
}

func (f *Formatter) RoomCreated(code, link string) string {
	return f.render("room.created", map[string]any{"Code": code, "Link": link},
		fmt.Sprintf("Room created: %s\n%s", code, link))
}

func (f *Formatter) Joined(room *duel.Room) string {
	host := ""
	if h, ok := room.Players[room.HostID]; ok {
		host = h.Name
	}
	return f.render("room.joined", map[string]any{"Code": room.Code, "Host": host},
		fmt.Sprintf("Joined room %s.", room.Code))
}

func (f *Formatter) OpponentJoined(room *duel.Room, name string) string {
	return f.render("room.opponent_joined", map[string]any{"Name": name, "Code": room.Code},
		fmt.Sprintf("%s joined room %s.", name, room.Code))
}

func (f *Formatter) OpponentLeft(name string) string {
	return f.render("room.opponent_left", map[string]any{"Name": name}, name+" left the room.")
}

func (f *Formatter) Left(code string) string {
	return f.render("room.left", map[string]any{"Code": code}, "You left the room.")
}

func (f *Formatter) Closed() string {
	return f.render("room.closed", nil, "The room was closed.")
}

func (f *Formatter) NotInGame() string {
	return f.render("room.not_in_game", nil, "You are not in a game.")
}

func (f *Formatter) AlreadyInGame(code string) string {
	return f.render("room.already_in_game", map[string]any{"Code": code}, "You are already in a room.")
}

// WaitingRoom lists players in join order with their ready marks.
func (f *Formatter) WaitingRoom(room *duel.Room) string {
	players := sortedPlayers(room)
	var list []string
	ready := 0
	for _, p := range players {
		mark := ""
		if p.IsReady {
			mark = " (ready)"
			ready++
		}
		list = append(list, p.Name+mark)
	}
	prompt := "Waiting for an opponent..."
	if len(players) == 2 {
		if ready == 2 {
			prompt = "Both ready! Starting..."
		} else {
			prompt = fmt.Sprintf("%d/2 ready", ready)
		}
	}
	return f.render("room.waiting", map[string]any{
		"Code":       room.Code,
		"PlayerList": strings.Join(list, "\n"),
		"Prompt":     prompt,
	}, "Room "+room.Code)
}

func (f *Formatter) Countdown(room *duel.Room) string {
	return f.render("round.countdown", map[string]any{
		"Round":   room.CurrentRound,
		"Total":   room.TotalRounds,
		"Seconds": duel.CountdownSeconds,
	}, "Get ready...")
}

// RoundPrompt renders the active round's challenge: the reference plus
// context for typing rounds, the blanked verse for progressive rounds.
func (f *Formatter) RoundPrompt(room *duel.Room) string {
	verse := room.CurrentVerse
	if verse == nil {
		return ""
	}
	seconds := int(duel.DeadlineFor(room.Mode(room.CurrentRound)).Seconds())
	if room.Mode(room.CurrentRound) == duel.ModeProgressive && room.ProgressiveData != nil {
		return f.render("round.progressive", map[string]any{
			"Round":     room.CurrentRound,
			"Total":     room.TotalRounds,
			"Reference": verse.Reference,
			"Percent":   room.ProgressiveData.BlankPercentage,
			"Prompt":    room.ProgressiveData.PromptText(verse),
			"Seconds":   seconds,
		}, verse.Reference)
	}
	before, after := "", ""
	if verse.Before != nil {
		before = verse.Before.Text
	}
	if verse.After != nil {
		after = verse.After.Text
	}
	return f.render("round.typing", map[string]any{
		"Round":     room.CurrentRound,
		"Total":     room.TotalRounds,
		"Reference": verse.Reference,
		"Before":    before,
		"After":     after,
		"Seconds":   seconds,
	}, verse.Reference)
}

func (f *Formatter) Submitted(res *duel.SubmitResult) string {
	return f.render("round.submitted", map[string]any{
		"Score":       res.Score,
		"Translation": res.Translation,
		"Feedback":    res.Feedback,
	}, fmt.Sprintf("Score: %d", res.Score))
}

func (f *Formatter) Timeout() string {
	return f.render("round.timeout", nil, "Time is up!")
}

// RoundResults renders the finalized snapshot for the current round.
func (f *Formatter) RoundResults(room *duel.Room) string {
	result, ok := room.RoundResults[room.CurrentRound]
	if !ok {
		return ""
	}
	var lines []string
	for _, p := range sortedPlayers(room) {
		pr := result.Players[p.ID]
		answer := pr.Answer
		if strings.TrimSpace(answer) == "" {
			answer = "(no answer)"
		}
		lines = append(lines, fmt.Sprintf("%s: %d points (total %d)\n  \"%s\"", p.Name, pr.Score, p.TotalScore, answer))
	}
	next := "Host: send /next for the next round."
	if room.CurrentRound >= room.TotalRounds {
		next = "That was the last round! Host: send /next for the final results."
	}
	translation := ""
	if room.CurrentVerse != nil {
		translation = room.CurrentVerse.DisplayTranslation()
	}
	return f.render("round.results", map[string]any{
		"Round":       result.Round,
		"Total":       room.TotalRounds,
		"Verse":       result.VisibleVerse,
		"Translation": translation,
		"Lines":       strings.Join(lines, "\n"),
		"NextPrompt":  next,
	}, strings.Join(lines, "\n"))
}

// FinalResults renders the scoreboard and the winner (or tie).
func (f *Formatter) FinalResults(room *duel.Room) string {
	players := sortedPlayers(room)
	sort.SliceStable(players, func(i, j int) bool { return players[i].TotalScore > players[j].TotalScore })
	var lines []string
	for i, p := range players {
		lines = append(lines, fmt.Sprintf("%d. %s - %d points", i+1, p.Name, p.TotalScore))
	}
	outcome := f.render("final.tie", nil, "It's a tie!")
	if winners := room.Winners(); len(winners) == 1 {
		outcome = f.render("final.win", map[string]any{"Name": winners[0].Name}, winners[0].Name+" wins!")
	}
	return f.render("final.results", map[string]any{
		"Code":    room.Code,
		"Lines":   strings.Join(lines, "\n"),
		"Outcome": outcome,
	}, outcome)
}

// ErrorText maps taxonomy errors to user-facing strings; anything else is
// treated as store trouble with a retry affordance.
func (f *Formatter) ErrorText(err error) string {
	switch {
	case errors.Is(err, duel.ErrNotFound):
		return f.render("errors.not_found", nil, "Room not found.")
	case errors.Is(err, duel.ErrRoomFull):
		return f.render("errors.room_full", nil, "Room is full.")
	case errors.Is(err, duel.ErrGameInProgress):
		return f.render("errors.in_progress", nil, "Game already in progress.")
	case errors.Is(err, duel.ErrNotHost):
		return f.render("errors.only_host", nil, "Only the host can do that.")
	default:
		return f.render("errors.store", nil, "Service unavailable, try again.")
	}
}

func sortedPlayers(room *duel.Room) []*duel.Player {
	out := make([]*duel.Player, 0, len(room.Players))
	for _, p := range room.Players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out
}
