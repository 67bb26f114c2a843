package boxes

import (
	"fmt"
	"sync"
	"time"
)

// GameState represents the current state of the game
type GameState string

const (
	GameStateWaiting    GameState = "waiting"
	GameStateReady      GameState = "ready"
	GameStateInProgress GameState = "in_progress"
	GameStateFinished   GameState = "finished"
)

// DefaultTotalTurns is the token budget of a matchmade game.
const DefaultTotalTurns = 8

// NewRoster returns the standard roster: two green boxes with initial
// weights 0.0 and 0.1, and two blue boxes with initial weights 0.2 and 0.3.
func NewRoster() []*Box {
	return []*Box{
		NewGreenBox(0.0),
		NewGreenBox(0.1),
		NewBlueBox(0.2),
		NewBlueBox(0.3),
	}
}

// Play runs a complete game over the given token weights and returns the
// final scores of player A and player B. Player A moves first, turns
// alternate, and each weight is consumed exactly once, in order. An empty
// input yields 0 for both players.
func Play(weights []uint32) (scoreA, scoreB float64) {
	roster := NewRoster()
	playerA := NewPlayer("player_a", "Player A")
	playerB := NewPlayer("player_b", "Player B")

	for i, w := range weights {
		if i%2 == 0 {
			playerA.TakeTurn(w, roster)
		} else {
			playerB.TakeTurn(w, roster)
		}
	}
	return playerA.Score, playerB.Score
}

type GameInterface interface {
	AddPlayer(player *Player) error
	StartGame() error
	DropToken(playerID string, weight uint32) error
	GetCurrentPlayer() *Player
	GetOpponent() *Player
	GetState() GameState
	EndTurn()
	Snapshot() GameSnapshot
}

// Game is a matchmade two-player game played over the standard roster.
// Each turn the current player drops one token; the lightest box absorbs
// it and the score goes to that player. The game finishes once the token
// budget is used up.
type Game struct {
	ID          string
	Player1     *Player
	Player2     *Player
	Boxes       []*Box
	CurrentTurn int       `json:"currentTurn"` // 0 for player1, 1 for player2
	TurnsTaken  int       `json:"turnsTaken"`
	TotalTurns  int       `json:"totalTurns"`
	State       GameState `json:"state"`
	Winner      *Player   `json:"winner,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	mutex       *sync.RWMutex
}

var _ GameInterface = (*Game)(nil)

// GameSnapshot is a copy of the game state safe to serialize while the
// game keeps running.
type GameSnapshot struct {
	ID          string    `json:"id"`
	Player1     Player    `json:"player1"`
	Player2     Player    `json:"player2"`
	Boxes       []Box     `json:"boxes"`
	CurrentTurn int       `json:"currentTurn"`
	TurnsTaken  int       `json:"turnsTaken"`
	TotalTurns  int       `json:"totalTurns"`
	State       GameState `json:"state"`
	Winner      *Player   `json:"winner,omitempty"`
}

func NewGame(id string) *Game {
	return &Game{
		ID:          id,
		Player1:     nil,
		Player2:     nil,
		Boxes:       NewRoster(),
		CurrentTurn: 0,
		TurnsTaken:  0,
		TotalTurns:  DefaultTotalTurns,
		State:       GameStateWaiting,
		Winner:      nil,
		CreatedAt:   time.Now(),
		mutex:       &sync.RWMutex{},
	}
}

func (g *Game) AddPlayer(player *Player) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.State != GameStateWaiting {
		return fmt.Errorf("game is not accepting players")
	}

	if g.Player1 == nil {
		g.Player1 = player
		return nil
	}

	if g.Player2 == nil {
		g.Player2 = player
		g.State = GameStateReady
		return nil
	}

	return fmt.Errorf("game is full")
}

// StartGame implements GameInterface.
func (g *Game) StartGame() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.State != GameStateReady {
		return fmt.Errorf("game is not ready to start")
	}

	if g.Player1 == nil || g.Player2 == nil {
		return fmt.Errorf("need two players to start")
	}

	g.State = GameStateInProgress
	g.CurrentTurn = 0 // Player1 starts
	return nil
}

// DropToken performs the current player's turn: the roster box with the
// smallest current weight absorbs the token and the returned score is
// added to that player's total. Returns an error if the game is not in
// progress or it is not the given player's turn.
func (g *Game) DropToken(playerID string, weight uint32) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.State != GameStateInProgress {
		return fmt.Errorf("game is not in progress")
	}

	current := g.currentPlayerLocked()
	if current.ID != playerID {
		return fmt.Errorf("not your turn")
	}

	current.TakeTurn(weight, g.Boxes)
	g.TurnsTaken++

	if g.TurnsTaken >= g.TotalTurns {
		g.State = GameStateFinished
		switch {
		case g.Player1.Score > g.Player2.Score:
			g.Winner = g.Player1
		case g.Player2.Score > g.Player1.Score:
			g.Winner = g.Player2
		}
		// equal scores leave Winner nil
		return nil
	}

	g.EndTurn()
	return nil
}

func (g *Game) EndTurn() {
	g.CurrentTurn = 1 - g.CurrentTurn
}

func (g *Game) currentPlayerLocked() *Player {
	if g.CurrentTurn == 0 {
		return g.Player1
	}
	return g.Player2
}

func (g *Game) GetCurrentPlayer() *Player {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.currentPlayerLocked()
}

// GetOpponent returns the opponent of the current player
func (g *Game) GetOpponent() *Player {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if g.CurrentTurn == 0 {
		return g.Player2
	}
	return g.Player1
}

// GetState implements GameInterface.
func (g *Game) GetState() GameState {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.State
}

// Snapshot implements GameInterface.
func (g *Game) Snapshot() GameSnapshot {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	snap := GameSnapshot{
		ID:          g.ID,
		Player1:     Player{},
		Player2:     Player{},
		Boxes:       make([]Box, 0, len(g.Boxes)),
		CurrentTurn: g.CurrentTurn,
		TurnsTaken:  g.TurnsTaken,
		TotalTurns:  g.TotalTurns,
		State:       g.State,
		Winner:      nil,
	}
	if g.Player1 != nil {
		snap.Player1 = *g.Player1
	}
	if g.Player2 != nil {
		snap.Player2 = *g.Player2
	}
	for _, b := range g.Boxes {
		copied := *b
		copied.Absorbed = append([]float64(nil), b.Absorbed...)
		snap.Boxes = append(snap.Boxes, copied)
	}
	if g.Winner != nil {
		winner := *g.Winner
		snap.Winner = &winner
	}
	return snap
}

// PrintScore writes a console summary of both scores; cosmetic only.
func (g *Game) PrintScore() {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	fmt.Printf("Scores: player 1 %v, player 2 %v\n", g.Player1.Score, g.Player2.Score)
}
