package messaging

import (
	"errors"
	"sort"
	"sync"

	"github.com/mkim/mystory/internal/domain/scrollsync"
	"github.com/mkim/mystory/internal/infrastructure/observability/logging"
	"github.com/mkim/mystory/internal/infrastructure/security"
)

// ErrHubFull is returned when the live session limit is reached.
var ErrHubFull = errors.New("too many live sessions")

// HubStats aggregates live sessions for the admin dashboard.
type HubStats struct {
	Total        int            `json:"total"`
	Playing      int            `json:"playing"`
	Locked       int            `json:"locked"`
	ByActiveItem map[string]int `json:"byActiveItem"`
}

// Hub tracks every live page session.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	closed   bool
	logger   *logging.ChanneledLogger
}

// NewHub creates a hub admitting at most max sessions (0 means unlimited).
func NewHub(max int, logger *logging.ChanneledLogger) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		max:      max,
		logger:   logger,
	}
}

// Open creates and registers a session over tree.
func (h *Hub) Open(tree *scrollsync.Tree, opts SessionOptions) (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrSessionClosed
	}
	if h.max > 0 && len(h.sessions) >= h.max {
		h.logger.Session().Warn("Session rejected, hub full", "limit", h.max)
		return nil, ErrHubFull
	}
	s := NewSession(security.GenerateULID(), tree, opts, h.logger)
	h.sessions[s.ID()] = s
	h.logger.Session().Info("Session opened", "sessionId", s.ID(), "live", len(h.sessions))
	return s, nil
}

// Close closes s and forgets it.
func (h *Hub) Close(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.ID()]
	delete(h.sessions, s.ID())
	live := len(h.sessions)
	h.mu.Unlock()

	s.Close()
	if ok {
		h.logger.Session().Info("Session closed", "sessionId", s.ID(), "live", live)
	}
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Sessions lists live sessions, oldest first.
func (h *Hub) Sessions() []SessionInfo {
	h.mu.RLock()
	list := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		list = append(list, s)
	}
	h.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Created.Equal(infos[j].Created) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Created.Before(infos[j].Created)
	})
	return infos
}

// Stats summarizes live sessions.
func (h *Hub) Stats() HubStats {
	stats := HubStats{ByActiveItem: make(map[string]int)}
	for _, info := range h.Sessions() {
		stats.Total++
		if info.Playing {
			stats.Playing++
		}
		if info.Mode == scrollsync.ManualLock {
			stats.Locked++
		}
		stats.ByActiveItem[info.ActiveItemID]++
	}
	return stats
}

// Shutdown closes every session and refuses new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	list := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		list = append(list, s)
	}
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range list {
		s.Close()
	}
	h.logger.Shutdown().Info("Session hub stopped", "closed", len(list))
}
