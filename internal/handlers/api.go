// internal/handlers/api.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/skirmish/internal/session"
)

// ListRoomsHandler serves the room directory over plain HTTP, mirroring the
// in-stream list_rooms reply.
func ListRoomsHandler(d *session.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"rooms": d.ListRooms(),
		})
	}
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
