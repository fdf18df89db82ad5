package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Parallel()

	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected ReferenceTime, got %v", clock.Now())
	}

	if got := clock.Advance(90 * time.Minute); !got.Equal(ReferenceTime().Add(90 * time.Minute)) {
		t.Fatalf("advance returned %v", got)
	}

	later := time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Fatalf("expected %v after Set, got %v", later, clock.Now())
	}
}

func TestTokenSequence(t *testing.T) {
	t.Parallel()

	seq := NewTokenSequence("")
	first, second := seq.Next(), seq.Next()
	if first != "token-1" || second != "token-2" {
		t.Fatalf("unexpected tokens %q, %q", first, second)
	}
	if got := seq.Issued(); len(got) != 2 || got[1] != "token-2" {
		t.Fatalf("unexpected issued tokens %v", got)
	}
}
