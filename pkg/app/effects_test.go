package app

import "testing"

func TestPopEffectsExpire(t *testing.T) {
	var e popEffects
	e.Add(10, 10, 20)
	e.Update(popLifetime / 2)
	e.Add(30, 30, 20)
	if e.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", e.Len())
	}

	e.Update(popLifetime * 0.6)
	if e.Len() != 1 {
		t.Errorf("First pop should expire, Len = %d", e.Len())
	}
	e.Update(popLifetime)
	if e.Len() != 0 {
		t.Errorf("All pops should expire, Len = %d", e.Len())
	}
}

func TestPulsePeriod(t *testing.T) {
	tests := []struct {
		percent float64
		want    float64
	}{
		{0, 0},
		{84.9, 0},
		{85, 1},
		{90, 0.8},
		{95, 0.5},
		{100, 0.5},
	}
	for _, tt := range tests {
		if got := pulsePeriod(tt.percent); got != tt.want {
			t.Errorf("pulsePeriod(%v) = %v, want %v", tt.percent, got, tt.want)
		}
	}
}

func TestPulseAlpha(t *testing.T) {
	if got := pulseAlpha(0, 3); got != 1 {
		t.Errorf("No pulse: got %v", got)
	}
	if got := pulseAlpha(1, 0); got < 0.99 {
		t.Errorf("Phase 0: got %v, want 1", got)
	}
	if got := pulseAlpha(1, 0.5); got > 0.61 {
		t.Errorf("Half period: got %v, want 0.6", got)
	}
}
