package main

import "testing"

func TestNightLevel(t *testing.T) {
	if got := nightLevel(0); got != 100 {
		t.Fatalf("midnight = %d, want 100", got)
	}
	if got := nightLevel(0.5); got != 0 {
		t.Fatalf("noon = %d, want 0", got)
	}
	if got := nightLevel(0.25); got != 0 {
		t.Fatalf("dawn = %d, want 0", got)
	}
	if a, b := nightLevel(0.1), nightLevel(0.9); a != b {
		t.Fatalf("night not symmetric: %d vs %d", a, b)
	}
}

func TestOverlayStep(t *testing.T) {
	if r, a := overlayStep(0, false); r != 0 || a != 0 {
		t.Fatalf("daylight overlay = %d,%d", r, a)
	}
	r, a := overlayStep(100, false)
	nr, na := overlayStep(100, true)
	if nr <= r || na >= a {
		t.Fatalf("night vision %d,%d not lighter than %d,%d", nr, na, r, a)
	}
	if _, a2 := overlayStep(90, false); a2 != a {
		t.Fatalf("levels in one bucket differ")
	}
}

func TestNightGradient(t *testing.T) {
	img := nightGradient(40, 20, 100, 80)
	if c := img.RGBAAt(20, 10); c.A != 0 {
		t.Fatalf("centre alpha = %d, want 0", c.A)
	}
	if c := img.RGBAAt(0, 0); c.A != uint8(0.8*255) {
		t.Fatalf("corner alpha = %d, want %d", c.A, uint8(0.8*255))
	}
}
