package server

import "net/http"

// handleHome serves a minimal browser client for the token game
func (gs *GameServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	// nolint:errcheck
	w.Write([]byte(`
		<!DOCTYPE html>
		<html>
		<head><title>Box Token Game</title></head>
		<body>
			<h1>Box Token Game</h1>
			<div id="status">Connecting...</div>
			<div id="scores"></div>
			<input id="weight" type="number" min="0" value="1" />
			<button onclick="dropToken()">Drop token</button>
			<script>
				const ws = new WebSocket('ws://' + location.host + '/api/ws');
				const status = document.getElementById('status');
				const scores = document.getElementById('scores');

				ws.onopen = function() {
					status.textContent = 'Connected - Finding opponent...';
				};

				ws.onmessage = function(event) {
					const msg = JSON.parse(event.data);
					console.log('Received:', msg);

					if (msg.type === 'game_matched') {
						status.textContent = 'Game found! Drop tokens on your turn.';
					} else if (msg.type === 'game_state') {
						const s = msg.data;
						status.textContent = 'Turn ' + s.turnsTaken + '/' + s.totalTurns;
						scores.textContent = s.player1.name + ': ' + s.player1.score +
							' | ' + s.player2.name + ': ' + s.player2.score;
					} else if (msg.type === 'game_end') {
						status.textContent = msg.data.winner
							? 'Winner: ' + msg.data.winner.name
							: 'Draw';
					} else if (msg.type === 'error') {
						status.textContent = 'Error: ' + msg.data;
					}
				};

				ws.onclose = function() {
					status.textContent = 'Disconnected';
				};

				function dropToken() {
					const weight = parseInt(document.getElementById('weight').value, 10);
					ws.send(JSON.stringify({type: 'drop_token', data: {weight: weight}}));
				}
			</script>
		</body>
		</html>
	`))
}
