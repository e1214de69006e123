package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fieldline/iotops/internal/chat"
	"github.com/fieldline/iotops/internal/domain"
)

func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /", uiHandler())
	mux.HandleFunc("/", handleNotFound)
}

func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("session.new", s.rpcSessionNew)
	s.Handle("chat.send", s.rpcChatSend)
	s.Handle("chat.feedback", s.rpcChatFeedback)
	s.Handle("session.history", s.rpcSessionHistory)
}

func (s *Server) rpcHealth(ctx *RequestContext) {
	ctx.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	})
}

type sessionNewResult struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) rpcSessionNew(ctx *RequestContext) {
	sess := s.chat.NewSession()
	ctx.Respond(sessionNewResult{SessionID: sess.ID()})
}

type chatSendParams struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatSendResult struct {
	Answer string `json:"answer"`
}

type chatDeltaEvent struct {
	RequestID string `json:"requestId"`
	Text      string `json:"text"`
}

type chatTraceEvent struct {
	RequestID string             `json:"requestId"`
	Text      string             `json:"text,omitempty"`
	Refs      []domain.Reference `json:"refs,omitempty"`
}

type chatDoneEvent struct {
	RequestID string `json:"requestId"`
}

// rpcChatSend runs one conversational turn. Partial answer text and
// retrieval traces stream as events while the agent responds; the
// final answer is the response payload.
func (s *Server) rpcChatSend(ctx *RequestContext) {
	var params chatSendParams
	if err := ctx.Params(&params); err != nil {
		ctx.RespondError("invalid_params", "invalid chat.send params")
		return
	}
	if params.SessionID == "" || params.Message == "" {
		ctx.RespondError("invalid_params", "sessionId and message are required")
		return
	}

	sink := func(ev chat.Event) {
		switch ev.Type {
		case chat.EventDelta:
			ctx.Client.SendEvent("chat.delta", chatDeltaEvent{
				RequestID: ctx.Frame.ID,
				Text:      ev.Text,
			}, s.eventSeq.Add(1))
		case chat.EventTrace:
			ctx.Client.SendEvent("chat.trace", chatTraceEvent{
				RequestID: ctx.Frame.ID,
				Text:      ev.Text,
				Refs:      ev.Refs,
			}, s.eventSeq.Add(1))
		}
	}

	sendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	answer, err := s.chat.Send(sendCtx, params.SessionID, params.Message, sink)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrUnknownSession):
			ctx.RespondError("unknown_session", "unknown session: "+params.SessionID)
		case errors.Is(err, chat.ErrBusy):
			ctx.RespondError("session_busy", "a request is already in flight for this session")
		default:
			ctx.RespondError("agent_unavailable", "the assistant could not process the request, please try again")
		}
		return
	}

	ctx.Client.SendEvent("chat.done", chatDoneEvent{RequestID: ctx.Frame.ID}, s.eventSeq.Add(1))
	ctx.Respond(chatSendResult{Answer: answer})
}

type chatFeedbackParams struct {
	SessionID string `json:"sessionId"`
	Turn      int    `json:"turn"`
	Value     string `json:"value"`
}

func (s *Server) rpcChatFeedback(ctx *RequestContext) {
	var params chatFeedbackParams
	if err := ctx.Params(&params); err != nil {
		ctx.RespondError("invalid_params", "invalid chat.feedback params")
		return
	}

	fbCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.chat.Feedback(fbCtx, params.SessionID, params.Turn, params.Value); err != nil {
		if errors.Is(err, chat.ErrUnknownSession) {
			ctx.RespondError("unknown_session", "unknown session: "+params.SessionID)
			return
		}
		ctx.RespondError("invalid_params", err.Error())
		return
	}
	ctx.Respond(map[string]bool{"recorded": true})
}

type sessionHistoryParams struct {
	SessionID string `json:"sessionId"`
}

type sessionHistoryResult struct {
	SessionID string            `json:"sessionId"`
	Turns     []domain.ChatTurn `json:"turns"`
}

// rpcSessionHistory returns the turns of a live session. History is
// session-scoped: there is no cross-session lookup.
func (s *Server) rpcSessionHistory(ctx *RequestContext) {
	var params sessionHistoryParams
	if err := ctx.Params(&params); err != nil {
		ctx.RespondError("invalid_params", "invalid session.history params")
		return
	}

	sess, ok := s.chat.Session(params.SessionID)
	if !ok {
		ctx.RespondError("unknown_session", "unknown session: "+params.SessionID)
		return
	}
	ctx.Respond(sessionHistoryResult{
		SessionID: sess.ID(),
		Turns:     sess.Turns(),
	})
}
