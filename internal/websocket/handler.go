package websocket

import (
	"net/http"

	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/pkg/utils"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers connect from the dashboard origin, which varies per deployment
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades a connection authenticated by the login token
func HandleWebSocket(hub *Hub, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := middleware.ParseToken(jwtSecret, r.URL.Query().Get("token"))
		if err != nil {
			log.Printf("❌ Invalid token in query parameter: %v", err)
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		sess, err := claims.Session()
		if err != nil {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(sess, claims.DeviceID, conn, hub)
		select {
		case hub.register <- client:
		case <-hub.done:
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()
	}
}
