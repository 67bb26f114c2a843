package boxes

// Player holds an identity and a running score.
type Player struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func NewPlayer(id, name string) *Player {
	return &Player{
		ID:    id,
		Name:  name,
		Score: 0,
	}
}

// TakeTurn lets the lightest box in the roster absorb the given token
// weight and adds the returned score to the player's total. When several
// boxes share the smallest weight, the earliest one in the roster wins.
func (p *Player) TakeTurn(weight uint32, roster []*Box) {
	lightest := roster[0]
	for _, b := range roster[1:] {
		if b.Less(lightest) {
			lightest = b
		}
	}
	p.Score += lightest.Absorb(float64(weight))
}
