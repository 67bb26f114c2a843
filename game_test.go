package boxes

import (
	"errors"
	"testing"
)

func TestPlay(t *testing.T) {
	tests := []struct {
		name    string
		weights []uint32
		wantA   float64
		wantB   float64
	}{
		{
			name:    "first 4 fibonacci numbers",
			weights: []uint32{1, 1, 2, 3},
			wantA:   13.0,
			wantB:   25.0,
		},
		{
			name:    "first 8 fibonacci numbers",
			weights: []uint32{1, 1, 2, 3, 5, 8, 13, 21},
			wantA:   155.0,
			wantB:   366.25,
		},
		{
			name:    "empty input",
			weights: []uint32{},
			wantA:   0.0,
			wantB:   0.0,
		},
		{
			name:    "single token goes to player A",
			weights: []uint32{4},
			wantA:   16.0,
			wantB:   0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotA, gotB := Play(tt.weights)
			if gotA != tt.wantA || gotB != tt.wantB {
				t.Errorf("Play(%v) = (%v, %v), want (%v, %v)",
					tt.weights, gotA, gotB, tt.wantA, tt.wantB)
			}
		})
	}
}

func TestPlay_Deterministic(t *testing.T) {
	weights := []uint32{1, 1, 2, 3, 5, 8, 13, 21}

	firstA, firstB := Play(weights)
	for i := 0; i < 5; i++ {
		gotA, gotB := Play(weights)
		if gotA != firstA || gotB != firstB {
			t.Errorf("replay %d: Play() = (%v, %v), want (%v, %v)",
				i, gotA, gotB, firstA, firstB)
		}
	}
}

func TestGame_AddPlayer(t *testing.T) {
	type fields struct {
		ID      string
		Player1 *Player
		Player2 *Player
	}
	type args struct {
		p *Player
	}
	tests := []struct {
		name    string
		fields  fields
		args    args
		wantErr bool
	}{
		{
			name: "add player to empty game",
			fields: fields{
				ID:      "empty game",
				Player1: nil,
				Player2: nil,
			},
			args: args{
				p: NewPlayer("player 1", ""),
			},
			wantErr: false,
		},
		{
			name: "add player to waiting game",
			fields: fields{
				ID:      "waiting game",
				Player1: NewPlayer("player 1", ""),
				Player2: nil,
			},
			args: args{
				p: NewPlayer("player 2", ""),
			},
			wantErr: false,
		},
		{
			name: "add player to full game",
			fields: fields{
				ID:      "full game",
				Player1: NewPlayer("player 1", ""),
				Player2: NewPlayer("player 2", ""),
			},
			args: args{
				p: NewPlayer("player 3", ""),
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGame(tt.fields.ID)
			if tt.fields.Player1 != nil {
				if err := g.AddPlayer(tt.fields.Player1); err != nil {
					t.Errorf("Game.AddPlayer() error = %v", err)
				}
			}
			if tt.fields.Player2 != nil {
				if err := g.AddPlayer(tt.fields.Player2); err != nil {
					t.Errorf("Game.AddPlayer() error = %v", err)
				}
			}
			if err := g.AddPlayer(tt.args.p); (err != nil) != tt.wantErr {
				t.Errorf("Game.AddPlayer() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newStartedGame(t *testing.T) (*Game, *Player, *Player) {
	t.Helper()

	player1 := NewPlayer("player 1", "One")
	player2 := NewPlayer("player 2", "Two")
	game := NewGame("game")

	if err := errors.Join(game.AddPlayer(player1), game.AddPlayer(player2)); err != nil {
		t.Fatalf("Game.AddPlayer() error = %v", err)
	}
	if err := game.StartGame(); err != nil {
		t.Fatalf("Game.StartGame() error = %v", err)
	}
	return game, player1, player2
}

func TestGame_DropToken_FullGame(t *testing.T) {
	game, player1, player2 := newStartedGame(t)

	weights := []uint32{1, 1, 2, 3, 5, 8, 13, 21}
	for i, w := range weights {
		current := player1
		if i%2 == 1 {
			current = player2
		}
		if err := game.DropToken(current.ID, w); err != nil {
			t.Fatalf("Game.DropToken(turn %d) error = %v", i, err)
		}
	}

	if got := game.GetState(); got != GameStateFinished {
		t.Errorf("Game.GetState() = %v, want %v", got, GameStateFinished)
	}
	if player1.Score != 155.0 {
		t.Errorf("player 1 score = %v, want 155", player1.Score)
	}
	if player2.Score != 366.25 {
		t.Errorf("player 2 score = %v, want 366.25", player2.Score)
	}
	if game.Winner != player2 {
		t.Errorf("Game.Winner = %v, want player 2", game.Winner)
	}
}

func TestGame_DropToken_OutOfTurn(t *testing.T) {
	game, player1, player2 := newStartedGame(t)

	if err := game.DropToken(player2.ID, 1); err == nil {
		t.Errorf("Game.DropToken() out of turn error = nil, want error")
	}
	if err := game.DropToken(player1.ID, 1); err != nil {
		t.Errorf("Game.DropToken() error = %v", err)
	}
	if err := game.DropToken(player1.ID, 1); err == nil {
		t.Errorf("Game.DropToken() twice in a row error = nil, want error")
	}
}

func TestGame_DropToken_NotInProgress(t *testing.T) {
	game := NewGame("game")
	player := NewPlayer("player 1", "One")
	if err := game.AddPlayer(player); err != nil {
		t.Fatalf("Game.AddPlayer() error = %v", err)
	}

	if err := game.DropToken(player.ID, 1); err == nil {
		t.Errorf("Game.DropToken() before start error = nil, want error")
	}
}

func TestGame_Snapshot(t *testing.T) {
	game, player1, _ := newStartedGame(t)

	if err := game.DropToken(player1.ID, 3); err != nil {
		t.Fatalf("Game.DropToken() error = %v", err)
	}

	snap := game.Snapshot()
	if snap.TurnsTaken != 1 {
		t.Errorf("snapshot TurnsTaken = %d, want 1", snap.TurnsTaken)
	}
	if snap.Player1.Score != 9.0 {
		t.Errorf("snapshot player 1 score = %v, want 9", snap.Player1.Score)
	}
	if len(snap.Boxes) != 4 {
		t.Fatalf("snapshot has %d boxes, want 4", len(snap.Boxes))
	}

	// mutating the snapshot must not leak back into the game
	snap.Boxes[0].Absorbed = append(snap.Boxes[0].Absorbed, 99)
	if got := len(game.Boxes[0].Absorbed); got != 1 {
		t.Errorf("game box history length = %d after snapshot mutation, want 1", got)
	}
}
