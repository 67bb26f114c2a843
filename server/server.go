package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tkahng/boxes"
	ws "github.com/tkahng/boxes/websocket"
)

type MessageType string

const (
	MessageTypeDropToken   MessageType = "drop_token"
	MessageTypeGameMatched MessageType = "game_matched"
	MessageTypeGameState   MessageType = "game_state"
	MessageTypeError       MessageType = "error"
	MessageTypeGameEnd     MessageType = "game_end"
)

type (
	Message struct {
		Type MessageType     `json:"type"`
		Data json.RawMessage `json:"data,omitempty"`
	}
	DropTokenData struct {
		Weight uint32 `json:"weight"`
	}
	PlayRequest struct {
		Weights []uint32 `json:"weights"`
	}
	PlayResponse struct {
		PlayerA float64 `json:"player_a"`
		PlayerB float64 `json:"player_b"`
	}
)

// GameServer integrates the matchmaking system with HTTP/WebSocket
type GameServer struct {
	broker   *boxes.GameBroker
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

func (gs *GameServer) Handler() http.Handler {
	return gs.mux
}

// NewGameServer creates a new game server
func NewGameServer(maxConcurrentGames int) *GameServer {
	broker := boxes.NewGameBroker(maxConcurrentGames)

	// nolint:exhaustruct
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &GameServer{
		broker:   broker,
		upgrader: upgrader,
		mux:      http.NewServeMux(),
	}
}

// Start starts the game server
func (gs *GameServer) Start() {
	gs.broker.Start()
	gs.setupRoutes()
}

// Stop gracefully stops the game server
func (gs *GameServer) Stop() {
	gs.broker.Stop()
}

// setupRoutes configures HTTP routes
func (gs *GameServer) setupRoutes() {
	gs.mux.HandleFunc("/", gs.handleHome)
	gs.mux.HandleFunc("/api/play", gs.handlePlay)
	gs.mux.HandleFunc("/api/ws", PlayerID(http.HandlerFunc(gs.handleWebSocket)).ServeHTTP)
	gs.mux.HandleFunc("/api/watch", gs.handleWatch)
	gs.mux.HandleFunc("/api/stats", gs.handleStats)
	gs.mux.HandleFunc("/api/health", gs.handleHealth)
}

// handlePlay replays a full list of token weights through a fresh game and
// returns both final scores.
func (gs *GameServer) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	scoreA, scoreB := boxes.Play(req.Weights)

	w.Header().Set("Content-Type", "application/json")
	// nolint:errcheck
	json.NewEncoder(w).Encode(PlayResponse{PlayerA: scoreA, PlayerB: scoreB})
}

// handleWebSocket handles WebSocket connections for real-time gameplay
func (gs *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	// nolint:errcheck
	defer conn.Close()

	playerID := getPlayerIDFromContext(r.Context())
	if playerID == "" {
		gs.sendError(conn, "Player ID not found")
		return
	}
	player := boxes.NewPlayer(playerID, "Player")

	log.Printf("Player %s connected", playerID)

	// Request game from matchmaking
	gameReady := make(chan *boxes.Game, 1)
	go func() {
		game, err := gs.broker.RequestGame(player)
		if err != nil {
			log.Printf("Matchmaking error for player %s: %v", playerID, err)
			gs.sendError(conn, err.Error())
			return
		}
		gameReady <- game
	}()

	select {
	case game := <-gameReady:
		gs.handleGameSession(conn, player, game)
	case <-time.After(30 * time.Second):
		gs.sendError(conn, "Matchmaking timeout")
		return
	}
}

// handleGameSession manages a player's game session
func (gs *GameServer) handleGameSession(conn *websocket.Conn, player *boxes.Player, game *boxes.Game) {
	// Notify player that game was found
	gs.sendMessage(conn, MessageTypeGameMatched, map[string]any{
		"gameId": game.ID,
		"player": player,
	})

	// Send initial game state
	gs.sendGameState(conn, game)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Printf("WebSocket read error: %v", err)
			break
		}

		if err := gs.processGameAction(game, player, msg); err != nil {
			gs.sendError(conn, err.Error())
			continue
		}

		// Send updated game state to the player and to any watchers
		gs.sendGameState(conn, game)
		gs.broadcastGameState(game)

		if game.GetState() == boxes.GameStateFinished {
			snap := game.Snapshot()
			gs.sendMessage(conn, MessageTypeGameEnd, map[string]any{
				"winner": snap.Winner,
			})
			break
		}
	}
}

// processGameAction processes a game action from a player
func (gs *GameServer) processGameAction(game *boxes.Game, player *boxes.Player, msg Message) error {
	switch msg.Type {
	case MessageTypeDropToken:
		var data DropTokenData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return fmt.Errorf("invalid action data")
		}
		// turn and state validation happens inside the game
		return game.DropToken(player.ID, data.Weight)

	default:
		return fmt.Errorf("unknown action type: %s", msg.Type)
	}
}

// handleWatch attaches a read-only spectator to a running game.
func (gs *GameServer) handleWatch(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game_id")
	session, ok := gs.broker.GetGameSession(gameID)
	if !ok {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	h := ws.ServeWS(
		gs.upgrader,
		ws.DefaultSetupConn,
		ws.NewClient,
		func(ctx context.Context, cf context.CancelFunc, c ws.Client) {
			session.Watchers.RegisterClient(ctx, cf, c)
			// catch the new watcher up on the current state
			if payload, err := gameStateMessage(session.Game); err == nil {
				_, _ = c.Write(payload)
			}
		},
		func(c ws.Client) {
			session.Watchers.UnregisterClient(c)
		},
		30*time.Second,
		nil, // watchers send nothing
	)
	h(w, r)
}

// handleStats provides server statistics
func (gs *GameServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"activeGames":    gs.broker.GetActiveGameCount(),
		"queueSize":      gs.broker.GetQueueSize(),
		"availableSlots": gs.broker.GetAvailableSlots(),
		"timestamp":      time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	// nolint:errcheck
	json.NewEncoder(w).Encode(stats)
}

// Global variables for tracking
var startTime = time.Now()

// handleHealth provides health check endpoint
func (gs *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := map[string]any{
		"status": "ok",
		"uptime": time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	// nolint:errcheck
	json.NewEncoder(w).Encode(health)
}

// Helper methods

func gameStateMessage(game *boxes.Game) ([]byte, error) {
	data, err := json.Marshal(game.Snapshot())
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: MessageTypeGameState, Data: data})
}

func (gs *GameServer) broadcastGameState(game *boxes.Game) {
	session, ok := gs.broker.GetGameSession(game.ID)
	if !ok {
		return
	}
	payload, err := gameStateMessage(game)
	if err != nil {
		log.Printf("Error encoding game state: %v", err)
		return
	}
	if err := session.Watchers.Broadcast(payload); err != nil {
		log.Printf("Error broadcasting game state: %v", err)
	}
}

func (gs *GameServer) sendMessage(conn *websocket.Conn, msgType MessageType, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("Error encoding message: %v", err)
		return
	}

	if err := conn.WriteJSON(Message{Type: msgType, Data: payload}); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}

func (gs *GameServer) sendError(conn *websocket.Conn, errorMsg string) {
	gs.sendMessage(conn, MessageTypeError, errorMsg)
}

func (gs *GameServer) sendGameState(conn *websocket.Conn, game *boxes.Game) {
	gs.sendMessage(conn, MessageTypeGameState, game.Snapshot())
}
