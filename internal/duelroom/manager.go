// Package duelroom manages room lifecycle: code allocation, create, join,
// leave, and host succession. Game state transitions live in internal/duel.
package duelroom

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/obslog"
	"github.com/ethanyoon/verseduel/internal/versebank"
)

const (
	// codeAlphabet excludes visually ambiguous characters (I, O, 0, 1).
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6

	createAttempts = 10
	maxPlayers     = 2
)

// Manager creates and dissolves rooms against the shared session store.
type Manager struct {
	store *duel.Store
	bank  *versebank.Bank
}

func NewManager(store *duel.Store, bank *versebank.Bank) *Manager {
	return &Manager{store: store, bank: bank}
}

// GenerateCode returns a fresh random room code.
func GenerateCode() (string, error) {
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(b), nil
}

// NormalizeCode uppercases and trims a player-supplied code; codes are
// accepted case-insensitively.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// ValidCode reports whether a normalized code has the expected shape.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// CreateRoom allocates a unique code (retrying on collision), freezes the
// whole game's verse and mode plan, and writes a waiting room with the
// creator as host.
func (m *Manager) CreateRoom(ctx context.Context, playerID, name string) (*duel.Room, error) {
	if strings.TrimSpace(playerID) == "" {
		return nil, duel.ErrInvalidArgs
	}
	verses, modes := duel.BuildRoundPlan(m.bank)
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		now := time.Now()
		room := &duel.Room{
			Code:   code,
			HostID: playerID,
			Status: duel.StatusWaiting,
			Players: map[string]*duel.Player{
				playerID: {ID: playerID, Name: name, JoinedAt: now},
			},
			CurrentRound: 0,
			TotalRounds:  len(verses),
			Verses:       verses,
			RoundModes:   modes,
			CreatedAt:    now,
		}
		ok, err := m.store.CreateRoom(ctx, room)
		if err != nil {
			return nil, err
		}
		if ok {
			obslog.L().Info("room_create",
				zap.String("code", code),
				zap.String("host_id", playerID),
				zap.Int("total_rounds", room.TotalRounds),
			)
			return room, nil
		}
	}
	return nil, fmt.Errorf("failed to allocate a unique room code")
}

// JoinRoom appends a player to a waiting room. Joining a room you are
// already in returns the room unchanged. A third join is rejected.
func (m *Manager) JoinRoom(ctx context.Context, code, playerID, name string) (*duel.Room, error) {
	code = NormalizeCode(code)
	if code == "" || strings.TrimSpace(playerID) == "" {
		return nil, duel.ErrInvalidArgs
	}
	_, room, err := m.store.UpdateRoom(ctx, code, func(r *duel.Room) (bool, error) {
		if _, already := r.Players[playerID]; already {
			return false, nil
		}
		if r.Status != duel.StatusWaiting {
			return false, duel.ErrGameInProgress
		}
		if len(r.Players) >= maxPlayers {
			return false, duel.ErrRoomFull
		}
		r.Players[playerID] = &duel.Player{ID: playerID, Name: name, JoinedAt: time.Now()}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	obslog.L().Info("room_join", zap.String("code", code), zap.String("player_id", playerID))
	return room, nil
}

// LeaveRoom removes a player. Host role passes to the earliest remaining
// joiner; an emptied room is deleted. Leaving an unknown room is a no-op.
func (m *Manager) LeaveRoom(ctx context.Context, code, playerID string) error {
	code = NormalizeCode(code)
	applied, room, err := m.store.UpdateRoom(ctx, code, func(r *duel.Room) (bool, error) {
		if _, ok := r.Players[playerID]; !ok {
			return false, nil
		}
		delete(r.Players, playerID)
		if r.HostID == playerID {
			r.HostID = earliestJoiner(r)
		}
		return true, nil
	})
	if err == duel.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	if applied && len(room.Players) == 0 {
		if derr := m.store.DeleteRoom(ctx, code); derr != nil {
			return derr
		}
		obslog.L().Info("room_dispose", zap.String("code", code))
		return nil
	}
	if applied {
		obslog.L().Info("room_leave",
			zap.String("code", code),
			zap.String("player_id", playerID),
			zap.String("host_id", room.HostID),
		)
	}
	return nil
}

func earliestJoiner(r *duel.Room) string {
	var (
		id    string
		first time.Time
	)
	for pid, p := range r.Players {
		if id == "" || p.JoinedAt.Before(first) {
			id, first = pid, p.JoinedAt
		}
	}
	return id
}
