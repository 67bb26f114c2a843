package boxes

// Kind selects the scoring rule a box applies after each absorption.
type Kind string

const (
	KindGreen Kind = "green"
	KindBlue  Kind = "blue"
)

// Box accumulates absorbed token weights and emits a score after each
// absorption. The scoring rule depends on the box's kind.
type Box struct {
	Kind     Kind      `json:"kind"`
	Weight   float64   `json:"weight"`
	Absorbed []float64 `json:"absorbed,omitempty"`
}

// NewGreenBox returns a green box with the given initial weight.
func NewGreenBox(initialWeight float64) *Box {
	return &Box{
		Kind:     KindGreen,
		Weight:   initialWeight,
		Absorbed: nil,
	}
}

// NewBlueBox returns a blue box with the given initial weight.
func NewBlueBox(initialWeight float64) *Box {
	return &Box{
		Kind:     KindBlue,
		Weight:   initialWeight,
		Absorbed: nil,
	}
}

// Absorb adds a token weight to the box, records it in the absorption
// history and returns the resulting score.
func (b *Box) Absorb(weight float64) float64 {
	b.Absorbed = append(b.Absorbed, weight)
	b.Weight += weight
	return b.Score()
}

// Score computes the box's current score without mutating it. A box that
// has absorbed nothing scores 0.
//
// A green box scores the square of the mean of the 3 most recently
// absorbed weights (mean of all of them if there are fewer than 3).
// A blue box scores Cantor's pairing function of the smallest and largest
// weight it has ever absorbed.
func (b *Box) Score() float64 {
	if len(b.Absorbed) == 0 {
		return 0
	}

	switch b.Kind {
	case KindGreen:
		recent := b.Absorbed
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		m := mean(recent)
		return m * m

	case KindBlue:
		lo, hi := b.Absorbed[0], b.Absorbed[0]
		for _, w := range b.Absorbed[1:] {
			if w < lo {
				lo = w
			}
			if w > hi {
				hi = w
			}
		}
		return cantorPair(lo, hi)
	}
	return 0
}

// Less orders boxes by current weight; used for turn selection only.
func (b *Box) Less(other *Box) bool {
	return b.Weight < other.Weight
}

func mean(weights []float64) float64 {
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	return sum / float64(len(weights))
}

// cantorPair is the real-valued generalization of Cantor's pairing
// function. cantorPair(0, 1) == 2. Not the integer-canonical form.
func cantorPair(lo, hi float64) float64 {
	return 0.5*(lo+hi)*(lo+hi+1) + hi
}
