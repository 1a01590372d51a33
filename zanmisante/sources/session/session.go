// Package session keeps per-login ephemeral state. A record lives from
// sign-in to sign-out and is never persisted; losing it on restart only
// means the bootstrap check runs again.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// BufferedMessage is a turn held only in memory, used when a user chats
// without an active conversation. Pending marks a turn whose store write
// failed; it is reconciled away on the next full reload.
type BufferedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Pending bool   `json:"pending,omitempty"`
}

type state struct {
	userID       int
	bootstrapped bool
	activeChat   *uuid.UUID
	buffer       []BufferedMessage
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*state)}
}

// Create registers a fresh session for a user. Creating over an existing
// ID resets it.
func (s *Store) Create(sessionID string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &state{userID: userID}
}

// Delete drops the session, clearing its bootstrap flag and buffer.
func (s *Store) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *Store) Bootstrapped(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	return ok && st.bootstrapped
}

// MarkBootstrapped records that the bootstrap check ran. An unknown session
// ID gets a record too, so the check still runs at most once.
func (s *Store) MarkBootstrapped(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	st.bootstrapped = true
}

func (s *Store) ActiveChat(sessionID string) (uuid.UUID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok || st.activeChat == nil {
		return uuid.UUID{}, false
	}
	return *st.activeChat, true
}

func (s *Store) SetActiveChat(sessionID string, chatID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	st.activeChat = &chatID
}

func (s *Store) Buffer(sessionID string) []BufferedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make([]BufferedMessage, len(st.buffer))
	copy(out, st.buffer)
	return out
}

func (s *Store) AppendBuffer(sessionID string, msg BufferedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &state{}
		s.sessions[sessionID] = st
	}
	st.buffer = append(st.buffer, msg)
}

func (s *Store) ClearBuffer(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.sessions[sessionID]; ok {
		st.buffer = nil
	}
}
