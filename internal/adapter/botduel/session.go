package botduel

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/obslog"
)

// session is one chat's seat at a room. The guard keeps this client from
// firing the same one-time transition twice off racing triggers (timer vs.
// pub/sub); whether the transition actually lands is still decided by the
// store's compare-and-swap.
type session struct {
	chatID   int64
	playerID string
	code     string
	guard    *duel.Guard
	unsub    func()

	lastStatus  duel.Status
	lastRound   int
	lastPlayers int

	timerMu sync.Mutex
	timer   *time.Timer
}

func (b *Bot) session(chatID int64) *session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

// watch registers the chat's session and subscribes it to room changes. The
// initial snapshot seeds the transition tracking so the watcher only reacts
// to changes that happen after the player sat down.
func (b *Bot) watch(chatID int64, pid string, room *duel.Room) error {
	sess := &session{
		chatID:      chatID,
		playerID:    pid,
		code:        room.Code,
		guard:       duel.NewGuard(),
		lastStatus:  room.Status,
		lastRound:   room.CurrentRound,
		lastPlayers: len(room.Players),
	}
	unsub, err := b.games.Subscribe(context.Background(), room.Code, func(r *duel.Room) {
		b.onRoomChange(sess, r)
	})
	if err != nil {
		return err
	}
	sess.unsub = unsub
	b.mu.Lock()
	b.sessions[chatID] = sess
	b.mu.Unlock()
	return nil
}

func (b *Bot) dropSession(chatID int64) {
	b.mu.Lock()
	sess := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()
	if sess == nil {
		return
	}
	sess.stopTimer()
	if sess.unsub != nil {
		sess.unsub()
	}
}

// onRoomChange runs on the subscription goroutine, one call at a time per
// session, so the lastStatus/lastRound fields need no locking. It narrates
// the room to this chat and fires the client-side transitions (countdown
// expiry, round deadline, all-submitted reveal).
func (b *Bot) onRoomChange(sess *session, room *duel.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if room == nil {
		b.reply(ctx, sess.chatID, b.format.Closed())
		b.dropSession(sess.chatID)
		return
	}
	if _, ok := room.Players[sess.playerID]; !ok {
		// Removed by a /leave from another surface for the same account.
		b.dropSession(sess.chatID)
		return
	}

	statusChanged := room.Status != sess.lastStatus || room.CurrentRound != sess.lastRound

	switch room.Status {
	case duel.StatusWaiting:
		if len(room.Players) > sess.lastPlayers {
			if opp := room.Opponent(sess.playerID); opp != nil {
				b.reply(ctx, sess.chatID, b.format.OpponentJoined(room, opp.Name))
			}
		} else if len(room.Players) < sess.lastPlayers {
			b.reply(ctx, sess.chatID, b.format.OpponentLeft("Your opponent"))
			sess.guard.Reset()
		}

	case duel.StatusCountdown:
		if statusChanged {
			sess.stopTimer()
			b.reply(ctx, sess.chatID, b.format.Countdown(room))
			b.armCountdown(sess, room.CurrentRound)
		}

	case duel.StatusPlaying:
		if statusChanged {
			sess.stopTimer()
			b.reply(ctx, sess.chatID, b.format.RoundPrompt(room))
			b.armDeadline(sess, room)
		}
		if room.AllFinished() && sess.guard.Arm(duel.StageReveal(room.CurrentRound)) {
			sess.stopTimer()
			if _, _, err := b.games.FinalizeRound(ctx, sess.code); err != nil {
				obslog.L().Warn("finalize_error", zap.String("code", sess.code), zap.Error(err))
			}
		}

	case duel.StatusRoundResults:
		if statusChanged {
			sess.stopTimer()
			b.reply(ctx, sess.chatID, b.format.RoundResults(room))
		}

	case duel.StatusFinalResults:
		if statusChanged {
			b.reply(ctx, sess.chatID, b.format.FinalResults(room))
			b.dropSession(sess.chatID)
			return
		}
	}

	sess.lastStatus = room.Status
	sess.lastRound = room.CurrentRound
	sess.lastPlayers = len(room.Players)
}

// armCountdown schedules the countdown -> playing push. Both clients run the
// timer; the guard stops local double-fires and the store picks one winner.
func (b *Bot) armCountdown(sess *session, round int) {
	sess.setTimer(time.AfterFunc(duel.CountdownSeconds*time.Second, func() {
		if !sess.guard.Arm(duel.StageBegin(round)) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if _, _, err := b.games.BeginRound(ctx, sess.code); err != nil {
			obslog.L().Warn("begin_round_error", zap.String("code", sess.code), zap.Error(err))
		}
	}))
}

// armDeadline schedules this player's own timeout: an empty auto-submit so
// the round can finalize even if they never answer. The write-once finish
// stamp makes it a no-op when a real answer got in first.
func (b *Bot) armDeadline(sess *session, room *duel.Room) {
	round := room.CurrentRound
	sess.setTimer(time.AfterFunc(duel.DeadlineFor(room.Mode(round)), func() {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		applied, r, _, err := b.games.SubmitAnswer(ctx, sess.code, sess.playerID, "")
		if err != nil {
			obslog.L().Warn("deadline_submit_error", zap.String("code", sess.code), zap.Error(err))
			return
		}
		if applied {
			b.reply(ctx, sess.chatID, b.format.Timeout())
		}
		if r != nil && r.AllFinished() && sess.guard.Arm(duel.StageReveal(round)) {
			if _, _, err := b.games.FinalizeRound(ctx, sess.code); err != nil {
				obslog.L().Warn("finalize_error", zap.String("code", sess.code), zap.Error(err))
			}
		}
	}))
}

func (s *session) setTimer(t *time.Timer) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = t
}

func (s *session) stopTimer() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
