package mux

import (
	"testing"
	"time"

	"github.com/rickgao/submux/internal/model"
)

func TestTimeoutWheel_StartAndFire(t *testing.T) {
	w := newTimeoutWheel(10 * time.Second)

	w.start(1)
	w.start(2)

	fired := w.tick(4 * time.Second)
	if len(fired) != 0 {
		t.Fatalf("fired early: %v", fired)
	}

	fired = w.tick(7 * time.Second)
	if len(fired) != 2 {
		t.Fatalf("fired = %v, want both transactions", fired)
	}

	// Evicted: a further tick reports nothing.
	if fired := w.tick(time.Hour); len(fired) != 0 {
		t.Errorf("fired again after eviction: %v", fired)
	}
}

func TestTimeoutWheel_StartIgnoresZeroAndDuplicates(t *testing.T) {
	w := newTimeoutWheel(10 * time.Second)

	w.start(0)
	if len(w.remaining) != 0 {
		t.Error("zero tx should not be tracked")
	}

	w.start(1)
	w.tick(6 * time.Second)
	w.start(1) // duplicate: must not reset the countdown

	if fired := w.tick(5 * time.Second); len(fired) != 1 {
		t.Errorf("fired = %v, want tx 1 (duplicate start ignored)", fired)
	}
}

func TestTimeoutWheel_DisabledInterval(t *testing.T) {
	w := newTimeoutWheel(0)

	w.start(1)
	if len(w.remaining) != 0 {
		t.Error("disabled wheel should track nothing")
	}
}

func TestTimeoutWheel_UpdateOnlyIfPresent(t *testing.T) {
	w := newTimeoutWheel(10 * time.Second)

	w.update(1)
	if len(w.remaining) != 0 {
		t.Error("update must not insert")
	}

	w.start(1)
	w.tick(8 * time.Second)
	w.update(1)

	if fired := w.tick(9 * time.Second); len(fired) != 0 {
		t.Errorf("fired = %v after refresh, want none", fired)
	}
	if fired := w.tick(2 * time.Second); len(fired) != 1 {
		t.Errorf("fired = %v, want tx 1", fired)
	}
}

func TestTimeoutWheel_Remove(t *testing.T) {
	w := newTimeoutWheel(10 * time.Second)

	w.start(1)
	w.remove(1)

	if fired := w.tick(time.Hour); len(fired) != 0 {
		t.Errorf("fired = %v after remove", fired)
	}
}

func TestTimeoutWheel_OnlyDecrements(t *testing.T) {
	w := newTimeoutWheel(10 * time.Second)

	w.start(1)
	w.tick(-5 * time.Second) // out-of-order local time: ignored
	w.tick(0)

	if rem := w.remaining[model.TxID(1)]; rem != 10*time.Second {
		t.Errorf("remaining = %v, want untouched 10s", rem)
	}

	w.tick(3 * time.Second)
	if rem := w.remaining[model.TxID(1)]; rem != 7*time.Second {
		t.Errorf("remaining = %v, want 7s", rem)
	}
}
