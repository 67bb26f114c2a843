package boxes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameBroker_Matchmaking(t *testing.T) {
	broker := NewGameBroker(4)
	broker.Start()
	defer broker.Stop()

	type result struct {
		game *Game
		err  error
	}
	results := make(chan result, 2)

	for _, p := range []*Player{NewPlayer("p1", "One"), NewPlayer("p2", "Two")} {
		go func(p *Player) {
			game, err := broker.RequestGame(p)
			results <- result{game: game, err: err}
		}(p)
	}

	var games []*Game
	for i := 0; i < 2; i++ {
		select {
		case res := <-results:
			require.NoError(t, res.err)
			require.NotNil(t, res.game)
			games = append(games, res.game)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for matchmaking")
		}
	}

	// both players land in the same, already started game
	assert.Equal(t, games[0].ID, games[1].ID)
	assert.Equal(t, GameStateInProgress, games[0].GetState())
	assert.Equal(t, 1, broker.GetActiveGameCount())

	session, ok := broker.GetGameSession(games[0].ID)
	require.True(t, ok)
	assert.NotNil(t, session.Watchers)
	assert.Len(t, session.Players, 2)
}

func TestGameBroker_StopCancelsWaitingPlayer(t *testing.T) {
	broker := NewGameBroker(4)
	broker.Start()

	errs := make(chan error, 1)
	go func() {
		_, err := broker.RequestGame(NewPlayer("lonely", "Lonely"))
		errs <- err
	}()

	// give the request time to reach the matchmaking worker
	time.Sleep(100 * time.Millisecond)
	broker.Stop()

	select {
	case err := <-errs:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for cancellation")
	}
}
