package boxes

import (
	"testing"
)

func TestPlayer_TakeTurn_PicksLightestBox(t *testing.T) {
	heavy := NewGreenBox(3.0)
	light := NewBlueBox(1.0)
	middle := NewGreenBox(2.0)
	roster := []*Box{heavy, light, middle}

	p := NewPlayer("p", "P")
	p.TakeTurn(5, roster)

	if got := len(light.Absorbed); got != 1 {
		t.Errorf("lightest box absorbed %d tokens, want 1", got)
	}
	if got := len(heavy.Absorbed) + len(middle.Absorbed); got != 0 {
		t.Errorf("heavier boxes absorbed %d tokens, want 0", got)
	}
}

func TestPlayer_TakeTurn_LeftmostOnTie(t *testing.T) {
	first := NewGreenBox(1.0)
	second := NewBlueBox(1.0)
	roster := []*Box{first, second}

	p := NewPlayer("p", "P")
	p.TakeTurn(2, roster)

	if got := len(first.Absorbed); got != 1 {
		t.Errorf("first box absorbed %d tokens, want 1", got)
	}
	if got := len(second.Absorbed); got != 0 {
		t.Errorf("second box absorbed %d tokens, want 0", got)
	}
}

func TestPlayer_TakeTurn_AccumulatesScore(t *testing.T) {
	roster := []*Box{NewGreenBox(0.0)}

	p := NewPlayer("p", "P")
	p.TakeTurn(3, roster) // score 9
	if p.Score != 9.0 {
		t.Errorf("Player.Score = %v, want 9", p.Score)
	}
	p.TakeTurn(12, roster) // score 9 + 56.25
	if p.Score != 65.25 {
		t.Errorf("Player.Score = %v, want 65.25", p.Score)
	}
}
