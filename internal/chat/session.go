// Package chat holds the conversation state behind the gateway: one
// session per browser tab, append-only turns, and a single in-flight
// request at a time.
package chat

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/fieldline/iotops/internal/domain"
)

// NewSessionID produces the short ids technicians read back over the
// phone: seven alphanumerics with a dash, digits and lowercase letters
// interleaved (e.g. "4f28b-1k"). Ids are random and not checked for
// collisions; the space is small but sessions are short-lived.
func NewSessionID() string {
	const digits = "0123456789"
	const letters = "abcdefghijklmnopqrstuvwxyz"
	d := func() byte { return digits[rand.IntN(len(digits))] }
	c := func() byte { return letters[rand.IntN(len(letters))] }
	return fmt.Sprintf("%c%c%c%c%c-%c%c", d(), c(), d(), d(), c(), d(), c())
}

// Session is one conversation. Turns are append-only; Begin/End
// enforce a single in-flight request so a second send cannot
// interleave with a streaming reply.
type Session struct {
	id        string
	createdAt time.Time

	mu       sync.Mutex
	busy     bool
	turns    []domain.ChatTurn
	feedback map[string]string // turn index -> feedback value
}

func newSession(id string) *Session {
	return &Session{
		id:        id,
		createdAt: time.Now(),
		feedback:  map[string]string{},
	}
}

func (s *Session) ID() string { return s.id }

// Begin claims the session for one request. Returns false when a
// reply is already being generated.
func (s *Session) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// End releases the session after a request finishes.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Append adds one turn to the transcript.
func (s *Session) Append(role, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, domain.ChatTurn{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []domain.ChatTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ChatTurn, len(s.turns))
	copy(out, s.turns)
	return out
}

// SetFeedback records thumbs up/down against one turn.
func (s *Session) SetFeedback(turn int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn < 0 || turn >= len(s.turns) {
		return fmt.Errorf("turn %d out of range", turn)
	}
	s.feedback[strconv.Itoa(turn)] = value
	return nil
}

// Snapshot returns copies of the transcript and feedback for
// persistence.
func (s *Session) Snapshot() ([]domain.ChatTurn, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := make([]domain.ChatTurn, len(s.turns))
	copy(turns, s.turns)
	fb := make(map[string]string, len(s.feedback))
	for k, v := range s.feedback {
		fb[k] = v
	}
	return turns, fb
}

// Registry tracks live sessions by id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: map[string]*Session{}}
}

// Create makes a new session with a fresh id.
func (r *Registry) Create() *Session {
	s := newSession(NewSessionID())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.id] = s
	return s
}

// Get looks up a live session.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}
