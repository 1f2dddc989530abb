package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches the connection to sessionID and blocks until it closes.
// initial, when non-nil, is called by the hub right after registration and
// its frame is queued ahead of any live event.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, initial func() []byte) {
	client := &Client{Hub: hub, Conn: c, SessionID: sessionID, Send: make(chan []byte, 256), initial: initial}
	if !hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
