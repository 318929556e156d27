package sync

import (
	"bufio"
	"encoding/json"
	"errors"
	"log"
	"net"
	"strings"
	"sync"
	"time"
)

// Server accepts TCP stream clients. Each client may send subscribe lines
// to pick the publication it follows; anything else it sends is ignored.
type Server struct {
	Addr   string
	Hub    *Hub
	Logger *log.Logger

	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

func NewServer(addr string, hub *Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{Addr: addr, Hub: hub, Logger: logger}
}

func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.Logger.Printf("[tcp-sync] listening on %s", s.Addr)
	return s.Serve(ln)
}

// Serve accepts clients on ln until Close is called.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.Logger.Printf("[tcp-sync] accept: %v", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		s.Hub.Add(conn)
		s.Hub.Welcome(conn)
		s.Logger.Printf("[tcp-sync] client connected: %s", conn.RemoteAddr())

		go s.handle(conn)
	}
}

func (s *Server) handle(c net.Conn) {
	defer func() {
		s.Hub.Remove(c)
		s.Logger.Printf("[tcp-sync] client disconnected: %s", c.RemoteAddr())
	}()

	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var msg SubscribeMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil || msg.Type != MessageSubscribe {
			continue
		}
		if !s.Hub.Subscribe(c, msg.Publication) {
			return
		}
	}
}

// Close stops accepting new clients.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
