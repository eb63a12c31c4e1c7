// Package gateway is the channel-facing surface: a small HTTP API for
// synchronous turns plus a WebSocket endpoint for persistent channel
// adapters. Channel specifics (WhatsApp, web widget, SMS bridges) live in
// the adapters; the gateway only speaks the turn envelope.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/civica/ventanilla/internal/config"
	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/civica/ventanilla/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

// turnTimeout bounds one turn end to end, including collaborator calls.
const turnTimeout = 2 * time.Minute

// TurnHandler processes one citizen turn. The orchestrator implements it.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req domain.TurnRequest) domain.TurnResult
}

// Server is the gateway HTTP + WebSocket server.
type Server struct {
	cfg     config.GatewayConfig
	auth    ResolvedAuth
	turns   TurnHandler
	log     *logging.Logger
	clients *ClientRegistry
	version string

	startedAt   time.Time
	httpServer  *http.Server
	upgrader    websocket.Upgrader
	authLimiter *authRateLimiter
}

// New creates a gateway server in front of a turn handler.
func New(cfg config.GatewayConfig, turns TurnHandler, log *logging.Logger) *Server {
	return &Server{
		cfg:         cfg,
		auth:        ResolveAuth(cfg.Token),
		turns:       turns,
		log:         log.Sub("gateway"),
		clients:     NewClientRegistry(log.Sub("clients")),
		version:     version.Version,
		startedAt:   time.Now(),
		authLimiter: newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients go through the web-widget adapter, not here.
			CheckOrigin: func(r *http.Request) bool { return r.Header.Get("Origin") == "" },
		},
	}
}

// Handler assembles the gateway's routes with the standard middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/v1/turn", s.handleTurn)
	mux.HandleFunc("GET /api/v1/chat", s.handleChat)
	mux.HandleFunc("/", handleNotFound)
	return withMiddleware(mux, s.log)
}

// Start begins listening for HTTP and WebSocket connections. It blocks until
// the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Bind, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: turnTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("gateway ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleChat upgrades HTTP to WebSocket and runs the connection loop.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(1 << 20)

	client, err := s.handshake(conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		s.authLimiter.recordFailure(conn.RemoteAddr().String())
		conn.Close()
		return
	}

	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	s.readLoop(r.Context(), client)
}

// handshake authenticates one WebSocket connection. Flow: server sends
// challenge, client sends connect, server validates and replies hello-ok.
func (s *Server) handshake(conn *websocket.Conn) (*Client, error) {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	challenge, err := NewEvent("connect.challenge", map[string]any{
		"nonce": uuid.New().String(),
		"ts":    time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating challenge: %w", err)
	}
	if err := conn.WriteJSON(challenge); err != nil {
		return nil, fmt.Errorf("sending challenge: %w", err)
	}

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading connect: %w", err)
	}

	var frame Frame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return nil, fmt.Errorf("parsing connect frame: %w", err)
	}
	if frame.Type != FrameTypeRequest || frame.Method != "connect" {
		sendErrorAndClose(conn, frame.ID, "protocol_error", "expected connect request")
		return nil, fmt.Errorf("expected connect request, got type=%s method=%s", frame.Type, frame.Method)
	}

	var params ConnectParams
	if err := json.Unmarshal(frame.Params, &params); err != nil {
		sendErrorAndClose(conn, frame.ID, "invalid_params", "invalid connect params")
		return nil, fmt.Errorf("parsing connect params: %w", err)
	}

	authResult := Authorize(s.auth, params.Auth)
	if !authResult.OK {
		sendErrorAndClose(conn, frame.ID, "unauthorized", authResult.Reason)
		return nil, fmt.Errorf("auth failed: %s", authResult.Reason)
	}

	conn.SetReadDeadline(time.Time{})
	client := NewClient(conn, params.Client, s.log.Sub("ws"))

	hello := HelloOK{
		Protocol: ProtocolVersion,
		Server:   ServerInfo{Version: s.version, ConnID: client.ConnID},
		Methods:  []string{"turn", "ping"},
	}
	resp, err := NewResponse(frame.ID, hello)
	if err != nil {
		return nil, fmt.Errorf("creating hello response: %w", err)
	}
	if err := conn.WriteJSON(resp); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	s.log.Info().
		Str("connId", client.ConnID).
		Str("channel", params.Client.Channel).
		Msg("channel authenticated")
	return client, nil
}

// readLoop processes request frames from an authenticated channel adapter.
func (s *Server) readLoop(ctx context.Context, client *Client) {
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.ConnID).Msg("channel closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", client.ConnID).Msg("read error")
			}
			return
		}
		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}
		s.dispatch(ctx, client, frame)
	}
}

// dispatch routes one request frame.
func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	switch frame.Method {
	case "ping":
		client.Respond(frame.ID, map[string]any{"pong": true})
	case "turn":
		var req domain.TurnRequest
		if frame.Params != nil {
			if err := json.Unmarshal(frame.Params, &req); err != nil {
				client.RespondError(frame.ID, ErrorShape{Code: "invalid_params", Message: err.Error()})
				return
			}
		}
		if req.Text == "" {
			client.RespondError(frame.ID, ErrorShape{Code: "invalid_params", Message: "text is required"})
			return
		}
		if req.Metadata == nil {
			req.Metadata = map[string]string{}
		}
		if req.Metadata["channel"] == "" {
			req.Metadata["channel"] = client.Info.Channel
		}

		turnCtx, cancel := context.WithTimeout(ctx, turnTimeout)
		defer cancel()
		client.Respond(frame.ID, s.turns.HandleTurn(turnCtx, req))
	default:
		client.RespondError(frame.ID, ErrorShape{
			Code:    "method_not_found",
			Message: "unknown method: " + frame.Method,
		})
	}
}

// sendErrorAndClose sends an error response and closes the connection.
func sendErrorAndClose(conn *websocket.Conn, reqID, code, message string) {
	conn.WriteJSON(NewErrorResponse(reqID, ErrorShape{Code: code, Message: message}))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, message))
}

// authRateLimiter tracks failed auth attempts per IP.
type authRateLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

const (
	authRateWindow   = 5 * time.Minute
	authRateMaxFails = 10
)

func newAuthRateLimiter() *authRateLimiter {
	return &authRateLimiter{failures: make(map[string][]time.Time)}
}

func (l *authRateLimiter) allow(remoteAddr string) bool {
	host := remoteHost(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.prune(host)
	if len(recent) == 0 {
		return true
	}
	return len(recent) < authRateMaxFails
}

func (l *authRateLimiter) recordFailure(remoteAddr string) {
	host := remoteHost(remoteAddr)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[host] = append(l.prune(host), time.Now())
}

// prune drops attempts outside the window. Caller holds the lock.
func (l *authRateLimiter) prune(host string) []time.Time {
	cutoff := time.Now().Add(-authRateWindow)
	recent := l.failures[host]
	filtered := recent[:0]
	for _, t := range recent {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		delete(l.failures, host)
		return nil
	}
	l.failures[host] = filtered
	return filtered
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
