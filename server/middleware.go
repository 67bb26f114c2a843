package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string // Define a custom type for context keys to avoid collisions

const playerIDKey contextKey = "player_id"

func getPlayerIDFromContext(ctx context.Context) string {
	playerID, _ := ctx.Value(playerIDKey).(string)
	return playerID
}

func withPlayerID(ctx context.Context, playerID string) context.Context {
	return context.WithValue(ctx, playerIDKey, playerID)
}

// Cors allows cross-origin requests from the given origin.
func Cors(origin string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Expose-Headers", "Link")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// PlayerID attaches a stable player ID to the request context, minting a
// new one when the cookie is absent or empty.
func PlayerID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var playerID string
		if cookie, err := r.Cookie("player_id"); err == nil && cookie.Value != "" {
			playerID = cookie.Value
		} else {
			playerID = generatePlayerID()
		}

		// nolint:exhaustruct
		cookie := &http.Cookie{
			Name:     "player_id",
			Value:    playerID,
			Expires:  time.Now().Add(24 * time.Hour),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		http.SetCookie(w, cookie)

		r = r.WithContext(withPlayerID(r.Context(), playerID))
		h.ServeHTTP(w, r)
	})
}

func generatePlayerID() string {
	return fmt.Sprintf("player_%s", uuid.NewString())
}
