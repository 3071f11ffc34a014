package operator

import "testing"

func TestAcquirePrefersSkillMatch(t *testing.T) {
	r := NewRegistry()
	r.Add("generalist", []string{"general"})
	matched := r.Add("specialist", []string{"technical"})

	op, ok := r.Acquire([]string{"technical", "specialized"})
	if !ok {
		t.Fatalf("Acquire() found nobody")
	}
	if op.ID != matched.ID {
		t.Fatalf("assigned %q, want skill-matched %q", op.Name, matched.Name)
	}
	if op.Status != StatusBusy {
		t.Fatalf("acquired operator status = %q, want busy", op.Status)
	}
}

func TestAcquireTieBreaksByInsertionOrder(t *testing.T) {
	r := NewRegistry()
	first := r.Add("first", []string{"general"})
	r.Add("second", []string{"general"})

	op, ok := r.Acquire([]string{"general"})
	if !ok || op.ID != first.ID {
		t.Fatalf("assigned %+v, want first-added operator", op)
	}
}

func TestAcquireNeverDoubleBooks(t *testing.T) {
	r := NewRegistry()
	r.Add("only", []string{"general"})

	a, ok := r.Acquire([]string{"general"})
	if !ok {
		t.Fatalf("first Acquire() failed")
	}
	if _, ok := r.Acquire([]string{"general"}); ok {
		t.Fatalf("second Acquire() should fail while operator is busy")
	}

	if !r.Release(a.ID) {
		t.Fatalf("Release() failed")
	}
	b, ok := r.Acquire([]string{"general"})
	if !ok || b.ID != a.ID {
		t.Fatalf("released operator should be assignable again, got %+v", b)
	}
}

func TestClaim(t *testing.T) {
	r := NewRegistry()
	op := r.Add("console", []string{"general"})

	if !r.Claim(op.ID) {
		t.Fatalf("Claim() on available operator failed")
	}
	if r.Claim(op.ID) {
		t.Fatalf("Claim() on busy operator should fail")
	}
	if r.Claim("missing") {
		t.Fatalf("Claim() on unknown operator should fail")
	}
}

func TestCountsAndSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Add("a", []string{"general"})
	op := r.Add("b", []string{"technical"})
	r.Claim(op.ID)

	available, total := r.Counts()
	if available != 1 || total != 2 {
		t.Fatalf("Counts() = (%d, %d), want (1, 2)", available, total)
	}

	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Name != "a" || snap[1].Name != "b" {
		t.Fatalf("Snapshot() order wrong: %+v", snap)
	}
	// Snapshot must be a copy, not a live view.
	snap[0].Status = StatusBusy
	if got, _ := r.Get(snap[0].ID); got.Status != StatusAvailable {
		t.Fatalf("mutating a snapshot leaked into the registry")
	}
}
