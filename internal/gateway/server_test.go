package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/iotops/internal/chat"
	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/domain"
	"github.com/fieldline/iotops/internal/history"
	"github.com/fieldline/iotops/internal/logging"
)

// scriptedInvoker replays a fixed event sequence for every request.
type scriptedInvoker struct {
	events []chat.Event
}

func (s *scriptedInvoker) Invoke(ctx context.Context, sessionID, text string) (<-chan chat.Event, error) {
	ch := make(chan chat.Event, len(s.events))
	for _, ev := range s.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func defaultScript() []chat.Event {
	return []chat.Event{
		{Type: chat.EventTrace, Text: "thermostat TH-218 temperature"},
		{Type: chat.EventTrace, Refs: []domain.Reference{{Text: "spec excerpt", URI: "s3://specs/th-218.pdf"}}},
		{Type: chat.EventDelta, Text: "The TH-218 reports "},
		{Type: chat.EventDelta, Text: "temperatures between -40C and 85C."},
		{Type: chat.EventDone},
	}
}

func testServer(t *testing.T, mutate func(*config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(&cfg)
	}

	log := logging.New(nil, "silent", "json")
	svc := chat.NewService(&scriptedInvoker{events: defaultScript()}, history.NewMemoryStore(), log)
	srv := New(cfg, svc, log)

	mux := http.NewServeMux()
	srv.registerHTTPRoutes(mux)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	// Public endpoint only returns status
	assert.Empty(t, health.Version)
}

func TestFrontendServed(t *testing.T) {
	_, ts := testServer(t, nil)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketHandshakeNoAuth(t *testing.T) {
	// Auth capability off: connect succeeds without credentials.
	_, ts := testServer(t, nil)
	conn := dial(t, ts)

	connectReq, err := NewRequest("req-1", "connect", ConnectParams{
		Client: ClientInfo{ID: "test-client"},
	})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(connectReq))

	var helloResp Frame
	require.NoError(t, conn.ReadJSON(&helloResp))
	assert.Equal(t, FrameTypeResponse, helloResp.Type)
	assert.Equal(t, "req-1", helloResp.ID)
	require.NotNil(t, helloResp.OK)
	assert.True(t, *helloResp.OK)

	var hello HelloOK
	require.NoError(t, json.Unmarshal(helloResp.Payload, &hello))
	assert.Equal(t, ProtocolVersion, hello.Protocol)
	assert.NotEmpty(t, hello.Server.ConnID)
	assert.Contains(t, hello.Features.Methods, "chat.send")
	assert.False(t, hello.Capabilities.Auth)
	assert.True(t, hello.Capabilities.HistoryPanel)
}

func TestWebSocketHandshakeTokenRequired(t *testing.T) {
	_, ts := testServer(t, func(cfg *config.Config) {
		cfg.Gateway.Capabilities.Auth = true
		cfg.Gateway.Auth.Token = "test-token-123"
	})
	conn := dial(t, ts)

	connectReq, _ := NewRequest("req-1", "connect", ConnectParams{
		Client: ClientInfo{ID: "test-client"},
		Auth:   &ConnectAuth{Token: "wrong-token"},
	})
	require.NoError(t, conn.WriteJSON(connectReq))

	var errResp Frame
	require.NoError(t, conn.ReadJSON(&errResp))
	assert.Equal(t, FrameTypeResponse, errResp.Type)
	require.NotNil(t, errResp.OK)
	assert.False(t, *errResp.OK)
	require.NotNil(t, errResp.Error)
	assert.Equal(t, "unauthorized", errResp.Error.Code)
}

func TestWebSocketHandshakeTokenSuccess(t *testing.T) {
	_, ts := testServer(t, func(cfg *config.Config) {
		cfg.Gateway.Capabilities.Auth = true
		cfg.Gateway.Auth.Token = "test-token-123"
	})
	conn := dial(t, ts)

	connectReq, _ := NewRequest("req-1", "connect", ConnectParams{
		Client: ClientInfo{ID: "test-client"},
		Auth:   &ConnectAuth{Token: "test-token-123"},
	})
	require.NoError(t, conn.WriteJSON(connectReq))

	var helloResp Frame
	require.NoError(t, conn.ReadJSON(&helloResp))
	require.NotNil(t, helloResp.OK)
	assert.True(t, *helloResp.OK)

	var hello HelloOK
	require.NoError(t, json.Unmarshal(helloResp.Payload, &hello))
	assert.True(t, hello.Capabilities.Auth)
}

func TestWebSocketHandshakeExpectsConnect(t *testing.T) {
	_, ts := testServer(t, nil)
	conn := dial(t, ts)

	req, _ := NewRequest("req-1", "health", nil)
	require.NoError(t, conn.WriteJSON(req))

	var errResp Frame
	require.NoError(t, conn.ReadJSON(&errResp))
	require.NotNil(t, errResp.Error)
	assert.Equal(t, "protocol_error", errResp.Error.Code)
}

// connectedConn returns a WebSocket connection that has completed the
// handshake against a server with auth disabled.
func connectedConn(t *testing.T) *websocket.Conn {
	t.Helper()
	_, ts := testServer(t, nil)
	conn := dial(t, ts)

	connectReq, _ := NewRequest("connect-req", "connect", ConnectParams{
		Client: ClientInfo{ID: "test-client"},
	})
	require.NoError(t, conn.WriteJSON(connectReq))

	var helloResp Frame
	require.NoError(t, conn.ReadJSON(&helloResp))
	require.NotNil(t, helloResp.OK)
	require.True(t, *helloResp.OK, "handshake should succeed")
	return conn
}

func newSession(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	req, _ := NewRequest("sess-req", "session.new", nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	require.True(t, *resp.OK)

	var result sessionNewResult
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	require.NotEmpty(t, result.SessionID)
	return result.SessionID
}

func TestWebSocketRPCHealth(t *testing.T) {
	conn := connectedConn(t)

	req, _ := NewRequest("req-2", "health", nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "req-2", resp.ID)
	require.NotNil(t, resp.OK)
	assert.True(t, *resp.OK)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Payload, &health))
	assert.Equal(t, "ok", health.Status)
	assert.NotEmpty(t, health.Version)
}

func TestSessionNewRPC(t *testing.T) {
	conn := connectedConn(t)
	id := newSession(t, conn)
	assert.Len(t, id, 8)
}

func TestChatSendRPCStreamsAndAnswers(t *testing.T) {
	conn := connectedConn(t)
	sessionID := newSession(t, conn)

	req, _ := NewRequest("chat-1", "chat.send", chatSendParams{
		SessionID: sessionID,
		Message:   "what temperatures does the TH-218 report?",
	})
	require.NoError(t, conn.WriteJSON(req))

	var traces, deltas []Frame
	var done *Frame
	var resp Frame
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == FrameTypeResponse {
			resp = frame
			break
		}
		require.Equal(t, FrameTypeEvent, frame.Type)
		switch frame.Event {
		case "chat.trace":
			traces = append(traces, frame)
		case "chat.delta":
			deltas = append(deltas, frame)
		case "chat.done":
			done = &frame
		}
	}

	require.NotNil(t, resp.OK)
	assert.True(t, *resp.OK)

	var result chatSendResult
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	assert.Equal(t, "The TH-218 reports temperatures between -40C and 85C.", result.Answer)

	require.Len(t, deltas, 2)
	var delta chatDeltaEvent
	require.NoError(t, json.Unmarshal(deltas[0].Payload, &delta))
	assert.Equal(t, "chat-1", delta.RequestID)
	assert.Equal(t, "The TH-218 reports ", delta.Text)

	require.Len(t, traces, 2)
	var trace chatTraceEvent
	require.NoError(t, json.Unmarshal(traces[1].Payload, &trace))
	require.Len(t, trace.Refs, 1)
	assert.Equal(t, "s3://specs/th-218.pdf", trace.Refs[0].URI)

	require.NotNil(t, done, "chat.done event expected before the response")
}

func TestChatSendRPCUnknownSession(t *testing.T) {
	conn := connectedConn(t)

	req, _ := NewRequest("chat-2", "chat.send", chatSendParams{
		SessionID: "0a00a-0a",
		Message:   "hello",
	})
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unknown_session", resp.Error.Code)
}

func TestChatSendRPCEmptyMessage(t *testing.T) {
	conn := connectedConn(t)
	sessionID := newSession(t, conn)

	req, _ := NewRequest("chat-3", "chat.send", chatSendParams{SessionID: sessionID})
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	assert.Equal(t, "invalid_params", resp.Error.Code)
}

func TestChatFeedbackRPC(t *testing.T) {
	conn := connectedConn(t)
	sessionID := newSession(t, conn)

	// A turn has to exist before feedback can land on it.
	sendReq, _ := NewRequest("chat-4", "chat.send", chatSendParams{
		SessionID: sessionID,
		Message:   "hello",
	})
	require.NoError(t, conn.WriteJSON(sendReq))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == FrameTypeResponse {
			break
		}
	}

	req, _ := NewRequest("fb-1", "chat.feedback", chatFeedbackParams{
		SessionID: sessionID,
		Turn:      1,
		Value:     "positive",
	})
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	assert.True(t, *resp.OK)
}

func TestSessionHistoryRPC(t *testing.T) {
	conn := connectedConn(t)
	sessionID := newSession(t, conn)

	sendReq, _ := NewRequest("chat-5", "chat.send", chatSendParams{
		SessionID: sessionID,
		Message:   "hello",
	})
	require.NoError(t, conn.WriteJSON(sendReq))
	for {
		var frame Frame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == FrameTypeResponse {
			break
		}
	}

	req, _ := NewRequest("hist-1", "session.history", sessionHistoryParams{SessionID: sessionID})
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	assert.True(t, *resp.OK)

	var result sessionHistoryResult
	require.NoError(t, json.Unmarshal(resp.Payload, &result))
	assert.Equal(t, sessionID, result.SessionID)
	require.Len(t, result.Turns, 2)
	assert.Equal(t, domain.RoleUser, result.Turns[0].Role)
	assert.Equal(t, domain.RoleAssistant, result.Turns[1].Role)
}

func TestWebSocketRPCUnknownMethod(t *testing.T) {
	conn := connectedConn(t)

	req, _ := NewRequest("req-6", "nonexistent.method", nil)
	require.NoError(t, conn.WriteJSON(req))

	var resp Frame
	require.NoError(t, conn.ReadJSON(&resp))
	require.NotNil(t, resp.OK)
	assert.False(t, *resp.OK)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "method_not_found", resp.Error.Code)
}

func TestResolveCapabilitiesDefaults(t *testing.T) {
	caps := resolveCapabilities(config.Capabilities{})
	assert.False(t, caps.Auth)
	assert.True(t, caps.HistoryPanel)
	assert.Empty(t, caps.BackgroundImage)

	off := false
	caps = resolveCapabilities(config.Capabilities{HistoryPanel: &off, BackgroundImage: "bg.png"})
	assert.False(t, caps.HistoryPanel)
	assert.Equal(t, "bg.png", caps.BackgroundImage)
}

func TestResolveBindAddr(t *testing.T) {
	tests := []struct {
		bind string
		host string
		port int
		want string
	}{
		{"loopback", "", 18789, "127.0.0.1:18789"},
		{"lan", "", 9999, "0.0.0.0:9999"},
		{"custom", "10.1.2.3", 3000, "10.1.2.3:3000"},
		{"custom", "", 3000, "0.0.0.0:3000"},
		{"unknown", "", 5000, "127.0.0.1:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.bind, func(t *testing.T) {
			addr := resolveBindAddr(config.GatewayConfig{
				Bind:           tt.bind,
				CustomBindHost: tt.host,
				Port:           tt.port,
			})
			assert.Equal(t, tt.want, addr)
		})
	}
}

func TestServerStart(t *testing.T) {
	cfg := config.Defaults()
	cfg.Gateway.Port = 0 // let OS pick a port

	log := logging.New(nil, "silent", "json")
	svc := chat.NewService(&scriptedInvoker{events: defaultScript()}, history.NewMemoryStore(), log)
	srv := New(cfg, svc, log)

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// Give it a moment to start
	time.Sleep(100 * time.Millisecond)

	cancel()

	err := <-errCh
	assert.NoError(t, err)
}
