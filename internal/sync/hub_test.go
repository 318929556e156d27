package sync

import (
	"bufio"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type testEvent struct {
	Type        string `json:"type"`
	Publication string `json:"publication"`
}

func startServer(t *testing.T) (*Server, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(ln.Addr().String(), NewHub(), log.New(io.Discard, "", 0))
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })
	return srv, ln.Addr().String()
}

type lineClient struct {
	conn net.Conn
	r    *bufio.Reader
}

func dial(t *testing.T, addr string) *lineClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return &lineClient{conn: conn, r: bufio.NewReader(conn)}
}

func (c *lineClient) next(t *testing.T, v any) {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := c.r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal([]byte(line), v); err != nil {
		t.Fatalf("decode %q: %v", line, err)
	}
}

func (c *lineClient) send(t *testing.T, v any) {
	t.Helper()
	b, _ := json.Marshal(v)
	if _, err := c.conn.Write(append(b, '\n')); err != nil {
		t.Fatal(err)
	}
}

func TestTCPClientReceivesAllEventsByDefault(t *testing.T) {
	srv, addr := startServer(t)
	c := dial(t, addr)

	var welcome WelcomeMessage
	c.next(t, &welcome)
	if welcome.Type != MessageWelcome || welcome.Transport != "tcp" || welcome.Clients != 1 {
		t.Fatalf("welcome = %+v", welcome)
	}

	srv.Hub.BroadcastJSON("book-a", testEvent{Type: "chapter.fetched", Publication: "book-a"})
	srv.Hub.BroadcastJSON("book-b", testEvent{Type: "chapter.fetched", Publication: "book-b"})

	var ev testEvent
	c.next(t, &ev)
	if ev.Publication != "book-a" {
		t.Fatalf("first event = %+v", ev)
	}
	c.next(t, &ev)
	if ev.Publication != "book-b" {
		t.Fatalf("second event = %+v", ev)
	}
}

func TestTCPSubscribeFiltersByPublication(t *testing.T) {
	srv, addr := startServer(t)
	c := dial(t, addr)

	var welcome WelcomeMessage
	c.next(t, &welcome)

	c.send(t, SubscribeMessage{Type: MessageSubscribe, Publication: "book-b"})
	var ack SubscribeMessage
	c.next(t, &ack)
	if ack.Type != MessageSubscribed || ack.Publication != "book-b" {
		t.Fatalf("ack = %+v", ack)
	}

	srv.Hub.BroadcastJSON("book-a", testEvent{Type: "build.completed", Publication: "book-a"})
	srv.Hub.BroadcastJSON("book-b", testEvent{Type: "build.completed", Publication: "book-b"})

	var ev testEvent
	c.next(t, &ev)
	if ev.Publication != "book-b" {
		t.Fatalf("received event for %s, want only book-b", ev.Publication)
	}
}

func TestTCPClientRemovedOnDisconnect(t *testing.T) {
	srv, addr := startServer(t)
	c := dial(t, addr)
	var welcome WelcomeMessage
	c.next(t, &welcome)

	c.conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still registered after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWebSocketStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	r := gin.New()
	r.GET("/ws", WSHandler(hub, log.New(io.Discard, "", 0)))
	ts := httptest.NewServer(r)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?publication=book-a"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	var welcome WelcomeMessage
	if err := ws.ReadJSON(&welcome); err != nil {
		t.Fatal(err)
	}
	if welcome.Transport != "websocket" {
		t.Fatalf("welcome = %+v", welcome)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Stats().WSClients != 1 {
		if time.Now().After(deadline) {
			t.Fatal("websocket client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.BroadcastJSON("book-b", testEvent{Type: "chapter.failed", Publication: "book-b"})
	hub.BroadcastJSON("book-a", testEvent{Type: "chapter.failed", Publication: "book-a"})

	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev testEvent
	if err := ws.ReadJSON(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Publication != "book-a" {
		t.Fatalf("event = %+v, want book-a only", ev)
	}
}

func TestSubscribeReplaysRecentEvents(t *testing.T) {
	srv, addr := startServer(t)

	srv.Hub.BroadcastJSON("book-a", testEvent{Type: "pipeline.started", Publication: "book-a"})
	srv.Hub.BroadcastJSON("book-b", testEvent{Type: "pipeline.started", Publication: "book-b"})
	srv.Hub.BroadcastJSON("book-a", testEvent{Type: "chapter.fetched", Publication: "book-a"})

	c := dial(t, addr)
	var welcome WelcomeMessage
	c.next(t, &welcome)

	c.send(t, SubscribeMessage{Type: MessageSubscribe, Publication: "book-a"})
	var ack SubscribeMessage
	c.next(t, &ack)

	var ev testEvent
	c.next(t, &ev)
	if ev.Type != "pipeline.started" || ev.Publication != "book-a" {
		t.Fatalf("first replayed event = %+v", ev)
	}
	c.next(t, &ev)
	if ev.Type != "chapter.fetched" || ev.Publication != "book-a" {
		t.Fatalf("second replayed event = %+v", ev)
	}
}

func TestHistoryIsBounded(t *testing.T) {
	hub := NewHub()
	hub.historySize = 3
	for i := 0; i < 10; i++ {
		hub.BroadcastJSON("book-a", testEvent{Type: "chapter.fetched", Publication: "book-a"})
	}
	hub.BroadcastJSON("", testEvent{Type: "untagged"})

	if n := len(hub.history["book-a"]); n != 3 {
		t.Fatalf("history holds %d events, want 3", n)
	}
	if st := hub.Stats(); st.Topics != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
