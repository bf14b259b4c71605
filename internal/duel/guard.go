package duel

import (
	"strconv"
	"sync"
)

// Stage keys for the one-shot guard. One latch per one-time transition.
func StageStart() string           { return "start" }
func StageBegin(round int) string  { return "begin:" + strconv.Itoa(round) }
func StageReveal(round int) string { return "reveal:" + strconv.Itoa(round) }

// Guard is a client-local idempotency gate: once a client decides to issue a
// one-time transition write it arms the stage's latch and never issues a
// second write while armed. Round-keyed stages never recur, so latches stay
// armed until the room leaves scope (Reset).
//
// This is a best-effort optimization to avoid redundant writes; correctness
// is carried entirely by the store-level CAS precondition.
type Guard struct {
	mu    sync.Mutex
	armed map[string]bool
}

func NewGuard() *Guard { return &Guard{armed: make(map[string]bool)} }

// Arm latches a stage. Returns true only for the call that armed it; every
// later call returns false until the stage is disarmed.
func (g *Guard) Arm(stage string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.armed[stage] {
		return false
	}
	g.armed[stage] = true
	return true
}

// Disarm clears one stage latch.
func (g *Guard) Disarm(stage string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.armed, stage)
}

// Reset clears every latch. Called when a room leaves scope.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = make(map[string]bool)
}
