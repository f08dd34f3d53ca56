// Package statusapi is the optional local HTTP status/control surface
// described in SPEC_FULL.md's ambient stack, adapted from the teacher's JWT
// bearer-token HTTP API.
package statusapi

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JoystickStatus summarizes one virtual joystick's runtime state.
type JoystickStatus struct {
	Key        string  `json:"key"`
	Created    bool    `json:"created"`
	Enabled    bool    `json:"enabled"`
	Position   float64 `json:"steering_position,omitempty"`
	HoldFactor float64 `json:"steering_hold_factor,omitempty"`
}

// StatusResponse is the /status endpoint's body.
type StatusResponse struct {
	UptimeSeconds float64          `json:"uptime_seconds"`
	MappingCount  int              `json:"mapping_count"`
	Joysticks     []JoystickStatus `json:"joysticks"`
}

// StatusProvider supplies the live data /status reports; the engine
// satisfies it.
type StatusProvider interface {
	MappingCount() int
	JoystickStatuses() []JoystickStatus
}

// ReloadFunc triggers the same hot-reload path a fsnotify-detected config
// change does. It returns an error describing why the reload was rejected,
// if any.
type ReloadFunc func() error

// Server is the JWT-guarded status/reload HTTP API.
type Server struct {
	provider  StatusProvider
	reload    ReloadFunc
	jwtSecret []byte
	startedAt time.Time
}

// NewServer builds a Server. An empty jwtSecret disables auth entirely,
// matching the teacher's AuthMiddleware behavior.
func NewServer(provider StatusProvider, reload ReloadFunc, jwtSecret string) *Server {
	if jwtSecret == "" {
		log.Println("[statusapi] no jwt_secret configured, authentication disabled")
	}
	return &Server{
		provider:  provider,
		reload:    reload,
		jwtSecret: []byte(jwtSecret),
		startedAt: time.Now(),
	}
}

// Handler returns the configured mux, ready to be served.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.authMiddleware(s.handleStatus))
	mux.HandleFunc("/reload", s.authMiddleware(s.handleReload))
	return mux
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(s.jwtSecret) == 0 {
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.jwtSecret, nil
		})
		if err != nil {
			log.Printf("[statusapi] auth error: %v", err)
			http.Error(w, fmt.Sprintf("invalid token: %v", err), http.StatusUnauthorized)
			return
		}
		if !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		UptimeSeconds: time.Since(s.startedAt).Seconds(),
		MappingCount:  s.provider.MappingCount(),
		Joysticks:     s.provider.JoystickStatuses(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := s.reload(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "reload triggered"})
}
