package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/fieldline/iotops/internal/domain"
	"github.com/fieldline/iotops/internal/history"
	"github.com/fieldline/iotops/internal/logging"
)

// Event is one streamed item of a reply: answer text, a retrieval
// trace, completion, or a stream failure.
type Event struct {
	Type string
	Text string
	Refs []domain.Reference
	Err  error
}

const (
	EventDelta = "delta"
	EventTrace = "trace"
	EventDone  = "done"
	EventError = "error"
)

// AgentInvoker streams a reply to one user message. The channel closes
// when the reply is complete or failed; failures arrive as an
// EventError before the close.
type AgentInvoker interface {
	Invoke(ctx context.Context, sessionID, text string) (<-chan Event, error)
}

// Sink receives events as they stream in.
type Sink func(Event)

var (
	// ErrBusy means a reply is already streaming for the session.
	ErrBusy = errors.New("a reply is already being generated for this session")
	// ErrUnknownSession means the id does not match a live session.
	ErrUnknownSession = errors.New("unknown session")
	// ErrAgentUnavailable is the generic retry-later error shown to
	// users; the underlying cause goes to the log only.
	ErrAgentUnavailable = errors.New("the assistant is unavailable right now, please try again shortly")
)

// Service runs conversations: it appends turns, streams replies
// through the invoker, and persists snapshots best-effort.
type Service struct {
	invoker  AgentInvoker
	store    history.Store
	sessions *Registry
	log      *logging.Logger
}

func NewService(invoker AgentInvoker, store history.Store, log *logging.Logger) *Service {
	return &Service{
		invoker:  invoker,
		store:    store,
		sessions: NewRegistry(),
		log:      log.Sub("chat"),
	}
}

// NewSession starts a fresh conversation.
func (s *Service) NewSession() *Session {
	sess := s.sessions.Create()
	s.log.Info().Str("sessionId", sess.ID()).Msg("session started")
	return sess
}

// Session resolves a live session by id.
func (s *Service) Session(id string) (*Session, bool) {
	return s.sessions.Get(id)
}

// Send runs one user message through the agent. The user turn is
// recorded first; deltas and traces are forwarded to the sink as they
// arrive; the assembled answer becomes the assistant turn and the
// snapshot is persisted. Any invoke or stream failure is logged in
// full and surfaces as ErrAgentUnavailable.
func (s *Service) Send(ctx context.Context, sessionID, text string, sink Sink) (string, error) {
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", ErrUnknownSession
	}
	if !sess.Begin() {
		return "", ErrBusy
	}
	defer sess.End()

	sess.Append(domain.RoleUser, text)

	events, err := s.invoker.Invoke(ctx, sessionID, text)
	if err != nil {
		s.log.Error().Err(err).Str("sessionId", sessionID).Msg("agent invocation failed")
		return "", ErrAgentUnavailable
	}

	var answer strings.Builder
	for ev := range events {
		if ev.Type == EventError {
			s.log.Error().Err(ev.Err).Str("sessionId", sessionID).Msg("reply stream failed")
			return "", ErrAgentUnavailable
		}
		if ev.Type == EventDelta {
			answer.WriteString(ev.Text)
		}
		if sink != nil {
			sink(ev)
		}
	}

	sess.Append(domain.RoleAssistant, answer.String())
	s.persist(ctx, sess)
	return answer.String(), nil
}

// Feedback records thumbs up/down for one turn and persists the
// updated snapshot.
func (s *Service) Feedback(ctx context.Context, sessionID string, turn int, value string) error {
	if value != domain.FeedbackPositive && value != domain.FeedbackNegative {
		return errors.New("feedback must be positive or negative")
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		return ErrUnknownSession
	}
	if err := sess.SetFeedback(turn, value); err != nil {
		return err
	}
	s.persist(ctx, sess)
	return nil
}

// persist saves a snapshot. Failures never block the conversation; a
// permissions failure is called out separately since it means a
// missing table grant rather than a transient fault.
func (s *Service) persist(ctx context.Context, sess *Session) {
	turns, feedback := sess.Snapshot()
	rec := history.NewRecord(sess.ID(), turns, feedback)
	if err := s.store.Save(ctx, rec); err != nil {
		if history.IsAccessDenied(err) {
			s.log.Warn().Str("sessionId", sess.ID()).Msg("history table access denied, conversation not persisted")
			return
		}
		s.log.Error().Err(err).Str("sessionId", sess.ID()).Msg("history save failed")
	}
}
