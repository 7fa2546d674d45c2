package leveling

import "testing"

var defaultFormula = Formula{Base: 100, Exponent: 1.5}

func TestXPForLevel(t *testing.T) {
	cases := []struct {
		level int
		want  int64
	}{
		{0, 0},
		{-3, 0},
		{1, 100},
		{2, 282},
		{3, 519},
		{10, 3162},
	}
	for _, tc := range cases {
		if got := defaultFormula.XPForLevel(tc.level); got != tc.want {
			t.Fatalf("level %d: expected %d, got %d", tc.level, tc.want, got)
		}
	}
}

func TestLevelFromTotalXPBoundaries(t *testing.T) {
	cases := []struct {
		total int64
		want  int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{381, 1},
		{382, 2},
		{900, 2},
		{901, 3},
	}
	for _, tc := range cases {
		if got := defaultFormula.LevelFromTotalXP(tc.total); got != tc.want {
			t.Fatalf("total %d: expected level %d, got %d", tc.total, tc.want, got)
		}
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for total := int64(0); total < 50000; total += 7 {
		level := defaultFormula.LevelFromTotalXP(total)
		within := defaultFormula.XPWithinLevel(total, level)
		if defaultFormula.TotalXPForLevel(level)+within != total {
			t.Fatalf("total %d: round trip broke at level %d within %d", total, level, within)
		}
		if within < 0 || within >= defaultFormula.XPForLevel(level+1) {
			t.Fatalf("total %d: within-level xp %d out of range for level %d", total, within, level)
		}
	}
}

func TestLevelMonotonic(t *testing.T) {
	previous := 0
	for total := int64(0); total < 50000; total += 13 {
		level := defaultFormula.LevelFromTotalXP(total)
		if level < previous {
			t.Fatalf("total %d: level dropped from %d to %d", total, previous, level)
		}
		previous = level
	}
}

func TestTotalXPForLevelMatchesInversion(t *testing.T) {
	for level := 0; level <= 60; level++ {
		total := defaultFormula.TotalXPForLevel(level)
		if got := defaultFormula.LevelFromTotalXP(total); got != level {
			t.Fatalf("level %d: expected inversion of %d to give %d, got %d", level, total, level, got)
		}
	}
}
