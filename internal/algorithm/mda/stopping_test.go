package mda

import "testing"

// TestStoppingPointMatchesPublishedTable checks the classic MDA stopping
// points at alpha=0.05 (spec.md §4.6's coupon-collector bound).
func TestStoppingPointMatchesPublishedTable(t *testing.T) {
	cases := map[int]int{
		1: 6,
		2: 11,
		3: 16,
		4: 21,
		5: 27,
	}
	for k, want := range cases {
		if got := StoppingPoint(k, DefaultAlpha); got != want {
			t.Errorf("StoppingPoint(%d, 0.05) = %d, want %d", k, got, want)
		}
	}
}

func TestStoppingPointMonotonicInK(t *testing.T) {
	prev := 0
	for k := 1; k <= 20; k++ {
		v := StoppingPoint(k, DefaultAlpha)
		if v <= prev {
			t.Fatalf("StoppingPoint(%d) = %d, not increasing from %d", k, v, prev)
		}
		prev = v
	}
}

func TestSaturatedRequiresBothCountAndWindow(t *testing.T) {
	// k=1 needs 6 probes total.
	if Saturated(1, 5, 5, DefaultAlpha) {
		t.Fatalf("k=1 saturated at 5 probes, want not yet (need 6)")
	}
	if !Saturated(1, 6, 6, DefaultAlpha) {
		t.Fatalf("k=1 with 6 probes and no new interface since should be saturated")
	}
	// A new interface reset the window too recently.
	if Saturated(1, 6, 0, DefaultAlpha) {
		t.Fatalf("k=1 saturated despite a new interface just discovered")
	}
}

func TestDefaultStoppingPointCaches(t *testing.T) {
	a := DefaultStoppingPoint(7)
	b := DefaultStoppingPoint(7)
	if a != b {
		t.Fatalf("DefaultStoppingPoint(7) inconsistent across calls: %d != %d", a, b)
	}
	if a != StoppingPoint(7, DefaultAlpha) {
		t.Fatalf("DefaultStoppingPoint(7) = %d, want %d", a, StoppingPoint(7, DefaultAlpha))
	}
}
