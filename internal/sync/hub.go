// Package sync fans pipeline events out to TCP and WebSocket subscribers.
package sync

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultHistorySize = 50
	writeTimeout       = 2 * time.Second
)

// Hub tracks stream clients and the publication each one follows.
// A client with an empty topic receives every event. The last events of
// each publication are kept so that a late subscriber can catch up on a
// build already in progress.
type Hub struct {
	mu          sync.Mutex
	tcp         map[net.Conn]string
	ws          map[*websocket.Conn]string
	history     map[string][][]byte
	historySize int
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
	Topics     int `json:"topics"`
}

func NewHub() *Hub {
	return &Hub{
		tcp:         make(map[net.Conn]string),
		ws:          make(map[*websocket.Conn]string),
		history:     make(map[string][][]byte),
		historySize: defaultHistorySize,
	}
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = ""
	h.mu.Unlock()
}

// Subscribe narrows a registered TCP client to topic, confirms it and
// replays the topic's recent events. It reports false for an unknown client.
func (h *Hub) Subscribe(conn net.Conn, topic string) bool {
	ack, _ := json.Marshal(SubscribeMessage{Type: MessageSubscribed, Publication: topic})

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tcp[conn]; !ok {
		return false
	}
	h.tcp[conn] = topic
	if err := writeLine(conn, ack); err != nil {
		return true
	}
	if topic == "" {
		return true
	}
	for _, line := range h.history[topic] {
		if err := writeLine(conn, line); err != nil {
			break
		}
	}
	return true
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// AddWS registers a websocket client and replays the recent events of its
// topic.
func (h *Hub) AddWS(ws *websocket.Conn, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ws[ws] = topic
	if topic == "" {
		return
	}
	for _, line := range h.history[topic] {
		if err := writeFrame(ws, line); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
			return
		}
	}
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// BroadcastJSON sends v as one JSON line to every client following topic.
// Clients that cannot be written to are dropped.
func (h *Hub) BroadcastJSON(topic string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if topic != "" {
		hist := append(h.history[topic], b)
		if len(hist) > h.historySize {
			hist = hist[len(hist)-h.historySize:]
		}
		h.history[topic] = hist
	}

	for c, want := range h.tcp {
		if !matches(want, topic) {
			continue
		}
		if err := writeLine(c, b); err != nil {
			_ = c.Close()
			delete(h.tcp, c)
		}
	}

	for ws, want := range h.ws {
		if !matches(want, topic) {
			continue
		}
		if err := writeFrame(ws, b); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
		}
	}
}

func matches(want, topic string) bool {
	return want == "" || want == topic
}

// Count is the number of TCP clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tcp)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.tcp),
		WSClients:  len(h.ws),
		Topics:     len(h.history),
	}
}

// Welcome greets a freshly added TCP client.
func (h *Hub) Welcome(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, _ := json.Marshal(WelcomeMessage{Type: MessageWelcome, Transport: "tcp", Clients: len(h.tcp)})
	_ = writeLine(conn, b)
}

func writeLine(c net.Conn, b []byte) error {
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, err := c.Write(append(b[:len(b):len(b)], '\n'))
	return err
}

func writeFrame(ws *websocket.Conn, b []byte) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ws.WriteMessage(websocket.TextMessage, append(b[:len(b):len(b)], '\n'))
}
