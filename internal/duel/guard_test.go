package duel

import (
	"sync"
	"testing"
)

func TestGuardArmsOnce(t *testing.T) {
	g := NewGuard()
	if !g.Arm(StageBegin(1)) {
		t.Fatalf("first arm returned false")
	}
	if g.Arm(StageBegin(1)) {
		t.Fatalf("second arm returned true")
	}
	if !g.Arm(StageBegin(2)) {
		t.Fatalf("distinct stage blocked by earlier stage")
	}
}

func TestGuardArmsOnceUnderRace(t *testing.T) {
	g := NewGuard()
	const goroutines = 32
	var (
		wg   sync.WaitGroup
		wins int32
		mu   sync.Mutex
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Arm(StageReveal(3)) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("%d goroutines armed, want exactly 1", wins)
	}
}

func TestGuardDisarmAndReset(t *testing.T) {
	g := NewGuard()
	g.Arm(StageStart())
	g.Disarm(StageStart())
	if !g.Arm(StageStart()) {
		t.Fatalf("disarmed stage did not re-arm")
	}

	g.Arm(StageBegin(1))
	g.Reset()
	if !g.Arm(StageBegin(1)) || !g.Arm(StageStart()) {
		t.Fatalf("reset did not clear all stages")
	}
}
