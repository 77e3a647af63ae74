package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openmat/scorecast/go/internal/models"
	"github.com/openmat/scorecast/go/internal/session"
	"github.com/rs/zerolog/log"
)

// StateProvider is what the gateway needs from a live session coordinator.
type StateProvider interface {
	Snapshot() (models.Session, int, error)
	History() ([]models.ScoreRecord, error)
}

// Service exposes live sessions to projection displays: a WebSocket feed of
// state updates and countdown ticks, plus a REST snapshot for initial sync.
type Service struct {
	connectionManager *ConnectionManager

	mu        sync.RWMutex
	providers map[string]StateProvider
}

// NewService creates a projection gateway service.
func NewService(config ConnectionConfig) *Service {
	return &Service{
		connectionManager: NewConnectionManager(config),
		providers:         make(map[string]StateProvider),
	}
}

// Start begins broadcast processing and blocks until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.connectionManager.Start(ctx)
}

// AttachSession makes a live session available to displays.
func (s *Service) AttachSession(sessionID string, provider StateProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[sessionID] = provider
}

// DetachSession removes a session, typically after it is finalized and
// navigation away occurred.
func (s *Service) DetachSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.providers, sessionID)
}

func (s *Service) provider(sessionID string) (StateProvider, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[sessionID]
	return p, ok
}

// BroadcastState pushes a full session view to every display watching it.
func (s *Service) BroadcastState(sessionID string, view SessionView) {
	data, err := json.Marshal(view)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal session view")
		return
	}
	s.connectionManager.BroadcastToSession(sessionID, &ProjectionEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      EventTypeStateUpdated,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// BroadcastTick pushes one countdown tick.
func (s *Service) BroadcastTick(sessionID string, remainingSec int) {
	data, err := json.Marshal(TimerTickPayload{
		RemainingSec: remainingSec,
		Clock:        session.FormatClock(remainingSec),
	})
	if err != nil {
		return
	}
	s.connectionManager.BroadcastToSession(sessionID, &ProjectionEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Type:      EventTypeTimerTick,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// HandleProjectionSocket handles GET /ws?session={id}, upgrading the display
// client and seeding it with the current state.
func (s *Service) HandleProjectionSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session query parameter is required", http.StatusBadRequest)
		return
	}

	provider, ok := s.provider(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	var initial *ProjectionEvent
	if snapshot, remaining, err := provider.Snapshot(); err == nil {
		if data, err := json.Marshal(BuildSessionView(snapshot, remaining)); err == nil {
			initial = &ProjectionEvent{
				ID:        uuid.New().String(),
				SessionID: sessionID,
				Type:      EventTypeStateUpdated,
				Timestamp: time.Now(),
				Data:      data,
			}
		}
	}

	if err := s.connectionManager.UpgradeConnection(w, r, sessionID, initial); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to upgrade projection client")
	}
}

// SessionStateResponse is the REST snapshot served for initial sync.
type SessionStateResponse struct {
	SessionView
	History []models.ScoreRecord `json:"history"`
}

// HandleGetSessionState handles GET /api/sessions/{id}/state.
func (s *Service) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := extractSessionIDFromPath(r.URL.Path)
	if sessionID == "" {
		http.Error(w, "Session ID is required", http.StatusBadRequest)
		return
	}

	provider, ok := s.provider(sessionID)
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	snapshot, remaining, err := provider.Snapshot()
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to get session state")
		http.Error(w, "Failed to get session state", http.StatusInternalServerError)
		return
	}
	history, err := provider.History()
	if err != nil {
		history = nil
	}

	response := SessionStateResponse{
		SessionView: BuildSessionView(snapshot, remaining),
		History:     history,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("failed to encode session state response")
	}
}

// HandleStats handles GET /api/stats.
func (s *Service) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.connectionManager.ConnectionStats()
	stats["service"] = "projection_gateway"

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		log.Error().Err(err).Msg("failed to encode stats response")
	}
}

// RegisterRoutes registers the gateway's HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", s.HandleProjectionSocket)
	mux.HandleFunc("/api/stats", s.HandleStats)
	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		if len(r.URL.Path) > len("/api/sessions/") && r.URL.Path[len(r.URL.Path)-6:] == "/state" {
			s.HandleGetSessionState(w, r)
		} else {
			http.NotFound(w, r)
		}
	})
	log.Info().Msg("projection gateway routes registered")
}

// extractSessionIDFromPath extracts the id from /api/sessions/{id}/state.
func extractSessionIDFromPath(path string) string {
	const prefix = "/api/sessions/"
	const suffix = "/state"

	if len(path) <= len(prefix)+len(suffix) {
		return ""
	}
	if path[:len(prefix)] != prefix || path[len(path)-len(suffix):] != suffix {
		return ""
	}
	return path[len(prefix) : len(path)-len(suffix)]
}
