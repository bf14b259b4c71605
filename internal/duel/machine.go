package duel

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/obslog"
	"github.com/ethanyoon/verseduel/internal/similarity"
)

// Manager owns the legal transition graph over room documents:
//
//	waiting       -> countdown      two players, all ready
//	countdown     -> playing        countdown elapsed (client timers)
//	playing       -> round_results  all present players submitted
//	round_results -> countdown      host advances, rounds remain
//	round_results -> final_results  host advances on the last round
//
// Every transition is a CAS against the session store; a duplicate attempt
// from the other client fails the precondition and becomes a no-op.
type Manager struct {
	store *Store
	repo  *Repository
}

func NewManager(store *Store) *Manager { return &Manager{store: store} }

// AttachRepository wires a database repository for archiving finished games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// Room reads the current room document.
func (m *Manager) Room(ctx context.Context, code string) (*Room, error) {
	return m.store.GetRoom(ctx, code)
}

// Subscribe forwards room snapshots; see Store.Subscribe.
func (m *Manager) Subscribe(ctx context.Context, code string, onChange func(*Room)) (func(), error) {
	return m.store.Subscribe(ctx, code, onChange)
}

// SetReady marks a player ready. Legal only while waiting.
func (m *Manager) SetReady(ctx context.Context, code, playerID string, ready bool) (*Room, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, ErrInvalidArgs
	}
	_, room, err := m.store.UpdateRoom(ctx, code, func(r *Room) (bool, error) {
		p, ok := r.Players[playerID]
		if !ok {
			return false, ErrNotFound
		}
		if r.Status != StatusWaiting || p.IsReady == ready {
			return false, nil
		}
		p.IsReady = ready
		return true, nil
	})
	return room, err
}

// StartIfReady attempts waiting -> countdown. Either client may observe
// readiness first and both may call this; the status precondition makes the
// loser's attempt a no-op.
func (m *Manager) StartIfReady(ctx context.Context, code string) (bool, *Room, error) {
	applied, room, err := m.store.UpdateRoom(ctx, code, func(r *Room) (bool, error) {
		if r.Status != StatusWaiting || !r.AllReady() {
			return false, nil
		}
		enterCountdown(r, 1)
		return true, nil
	})
	if applied {
		obslog.L().Info("game_start",
			zap.String("code", code),
			zap.Int("players", len(room.Players)),
			zap.Int("total_rounds", room.TotalRounds),
		)
	}
	return applied, room, err
}

// BeginRound attempts countdown -> playing once the client's local countdown
// timer has elapsed. Idempotent across clients.
func (m *Manager) BeginRound(ctx context.Context, code string) (bool, *Room, error) {
	applied, room, err := m.store.UpdateRoom(ctx, code, func(r *Room) (bool, error) {
		if r.Status != StatusCountdown {
			return false, nil
		}
		now := time.Now()
		r.Status = StatusPlaying
		r.PlayingStartedAt = &now
		return true, nil
	})
	if applied {
		obslog.L().Info("round_begin",
			zap.String("code", code),
			zap.Int("round", room.CurrentRound),
			zap.String("mode", string(room.Mode(room.CurrentRound))),
		)
	}
	return applied, room, err
}

// SubmitResult reports what a submission scored.
type SubmitResult struct {
	Score       int
	Translation string
	Feedback    string
}

// SubmitAnswer records a player's answer for the active round. The finished
// timestamp is write-once per round: a deadline auto-submit racing a manual
// submit (or a stale duplicate) fails the precondition and changes nothing.
func (m *Manager) SubmitAnswer(ctx context.Context, code, playerID, text string) (bool, *Room, *SubmitResult, error) {
	if strings.TrimSpace(playerID) == "" {
		return false, nil, nil, ErrInvalidArgs
	}
	var res SubmitResult
	applied, room, err := m.store.UpdateRoom(ctx, code, func(r *Room) (bool, error) {
		p, ok := r.Players[playerID]
		if !ok {
			return false, ErrNotFound
		}
		if r.Status != StatusPlaying || p.Finished() || r.CurrentVerse == nil {
			return false, nil
		}
		if r.Mode(r.CurrentRound) == ModeProgressive {
			res.Score = ScoreProgressive(text, r.ProgressiveData)
			res.Translation = r.CurrentVerse.DisplayTranslation()
			res.Feedback = similarity.FeedbackFor(res.Score)
		} else {
			graded := similarity.Grade(text, r.CurrentVerse.Translations)
			res.Score = graded.BestScore
			res.Translation = graded.BestTranslation
			res.Feedback = graded.Feedback
		}
		now := time.Now()
		p.CurrentRoundScore = res.Score
		p.CurrentRoundAnswer = text
		p.CurrentRoundTranslation = res.Translation
		p.CurrentRoundFinishedAt = &now
		return true, nil
	})
	if err != nil || !applied {
		return applied, room, nil, err
	}
	obslog.L().Info("answer_submit",
		zap.String("code", code),
		zap.String("player_id", playerID),
		zap.Int("round", room.CurrentRound),
		zap.Int("score", res.Score),
		zap.String("translation", res.Translation),
	)
	return true, room, &res, nil
}

// FinalizeRound attempts playing -> round_results: appends the round's
// immutable result snapshot and folds round scores into totals, exactly once.
// Each client calls this the moment it observes that everyone submitted; the
// CAS on status==playing makes the duplicate a no-op rather than a
// double-append.
func (m *Manager) FinalizeRound(ctx context.Context, code string) (bool, *Room, error) {
	applied, room, err := m.store.UpdateRoom(ctx, code, func(r *Room) (bool, error) {
		if r.Status != StatusPlaying || !r.AllFinished() {
			return false, nil
		}
		if _, exists := r.RoundResults[r.CurrentRound]; exists {
			return false, nil
		}
		result := RoundResult{
			Round:        r.CurrentRound,
			VisibleVerse: r.CurrentVerse.DisplayText(),
			Players:      make(map[string]PlayerResult, len(r.Players)),
		}
		for id, p := range r.Players {
			result.Players[id] = PlayerResult{
				Answer:      p.CurrentRoundAnswer,
				Score:       p.CurrentRoundScore,
				Translation: p.CurrentRoundTranslation,
			}
			p.TotalScore += p.CurrentRoundScore
			p.RoundScores = append(p.RoundScores, p.CurrentRoundScore)
		}
		if r.RoundResults == nil {
			r.RoundResults = make(map[int]RoundResult)
		}
		r.RoundResults[r.CurrentRound] = result
		r.Status = StatusRoundResults
		return true, nil
	})
	if applied {
		obslog.L().Info("round_finalize", zap.String("code", code), zap.Int("round", room.CurrentRound))
	}
	return applied, room, err
}

// AdvanceRound is the host-only action off round_results: on to the next
// round's countdown, or to final_results after the last round.
func (m *Manager) AdvanceRound(ctx context.Context, code, playerID string) (bool, *Room, error) {
	applied, room, err := m.store.UpdateRoom(ctx, code, func(r *Room) (bool, error) {
		if playerID != r.HostID {
			return false, ErrNotHost
		}
		if r.Status != StatusRoundResults {
			return false, nil
		}
		if r.CurrentRound >= r.TotalRounds {
			r.Status = StatusFinalResults
			return true, nil
		}
		enterCountdown(r, r.CurrentRound+1)
		return true, nil
	})
	if err != nil || !applied {
		return applied, room, err
	}
	if room.Status == StatusFinalResults {
		obslog.L().Info("game_finish", zap.String("code", code))
		m.archiveIfFinal(ctx, room)
	} else {
		obslog.L().Info("round_advance", zap.String("code", code), zap.Int("round", room.CurrentRound))
	}
	return true, room, nil
}

// enterCountdown loads a round's verse and mode from the frozen plan and
// clears every per-round player field. Runs inside an UpdateRoom apply.
func enterCountdown(r *Room, round int) {
	now := time.Now()
	r.Status = StatusCountdown
	r.CurrentRound = round
	r.CountdownStartedAt = &now
	r.PlayingStartedAt = nil

	verse := r.Verses[round-1]
	r.CurrentVerse = &verse
	if r.Mode(round) == ModeProgressive {
		r.ProgressiveData = GenerateBlanks(&verse, round)
	} else {
		r.ProgressiveData = nil
	}
	for _, p := range r.Players {
		p.CurrentRoundFinishedAt = nil
		p.CurrentRoundScore = 0
		p.CurrentRoundAnswer = ""
		p.CurrentRoundTranslation = ""
	}
}

// archiveIfFinal persists the finished match when a repository is attached.
func (m *Manager) archiveIfFinal(ctx context.Context, room *Room) {
	if m == nil || m.repo == nil || room == nil || room.Status != StatusFinalResults {
		return
	}
	if err := m.repo.SaveMatch(ctx, room); err != nil {
		obslog.L().Error("match_archive_error", zap.String("code", room.Code), zap.Error(err))
		return
	}
	obslog.L().Info("match_archive", zap.String("code", room.Code))
}
