package main

import "testing"

// TestWaitFlagAcceptsFractionalSeconds covers spec.md §8 scenario 6: -z 0.5
// must parse successfully (a pre-fix int-typed flag rejects "0.5" outright)
// and populate interDelay with the fractional value rather than truncating.
func TestWaitFlagAcceptsFractionalSeconds(t *testing.T) {
	interDelay = 0
	if err := rootCmd.Flags().Set("wait", "0.5"); err != nil {
		t.Fatalf("Set(wait, 0.5) error = %v, want nil", err)
	}
	if interDelay != 0.5 {
		t.Fatalf("interDelay = %v, want 0.5", interDelay)
	}
}
