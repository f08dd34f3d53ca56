// Package overlay serves a small websocket feed of the steering wheel's
// live position and auto-center hold factor, for an on-screen overlay
// widget. It has no bearing on the pipeline itself: it only reads the
// atomics the engine already publishes.
package overlay

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Snapshot is the subset of engine state the overlay cares about.
type Snapshot interface {
	Load() (position, holdFactor float64)
}

// Frame is one JSON message pushed to connected overlay clients.
type Frame struct {
	Position   float64 `json:"position"`
	HoldFactor float64 `json:"hold_factor"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server streams Frame values at a fixed rate to every connected client.
type Server struct {
	snapshot Snapshot
	rate     time.Duration
}

// NewServer builds a Server publishing at the given rate (defaulting to
// 60Hz if non-positive).
func NewServer(snapshot Snapshot, rate time.Duration) *Server {
	if rate <= 0 {
		rate = time.Second / 60
	}
	return &Server{snapshot: snapshot, rate: rate}
}

// Handler returns the /overlay websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/overlay", s.handleWebsocket)
	return mux
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[overlay] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	for range ticker.C {
		position, holdFactor := s.snapshot.Load()
		frame := Frame{Position: position, HoldFactor: holdFactor}
		if err := conn.WriteJSON(frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[overlay] write failed: %v", err)
			}
			return
		}
	}
}

