package sync

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the stream is read-only and carries no credentials
	},
}

// WSHandler streams events over a WebSocket. The optional ?publication=
// query parameter restricts the stream to one publication.
func WSHandler(hub *Hub, logger *log.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(c *gin.Context) {
		topic := c.Query("publication")
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		// greet before registering so the welcome is always the first frame
		b, _ := json.Marshal(WelcomeMessage{Type: MessageWelcome, Transport: "websocket", Clients: hub.Stats().WSClients + 1})
		if err := writeFrame(ws, b); err != nil {
			_ = ws.Close()
			return
		}
		hub.AddWS(ws, topic)
		logger.Printf("[ws] client connected (publication=%q)", topic)

		// Keep connection alive (ignore incoming messages)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		logger.Println("[ws] client disconnected")
	}
}
