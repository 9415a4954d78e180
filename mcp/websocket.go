package mcp

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultAddr is the websocket listen address when none is configured.
const DefaultAddr = "localhost:8765"

const (
	pingInterval = 20 * time.Second
	pongTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WebsocketServer serves the engine over a websocket endpoint. Each
// connection runs its own read loop and ping loop; writes to one connection
// are serialized through a per-connection mutex.
type WebsocketServer struct {
	engine *Engine
	addr   string
	logger *zap.Logger

	httpServer *http.Server

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func NewWebsocketServer(engine *Engine, addr string, logger *zap.Logger) *WebsocketServer {
	if addr == "" {
		addr = DefaultAddr
	}
	return &WebsocketServer{
		engine: engine,
		addr:   addr,
		logger: logger,
		conns:  map[*websocket.Conn]struct{}{},
	}
}

// Start listens and serves until the context is cancelled, then closes all
// live connections and shuts the listener down.
func (s *WebsocketServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConn)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{Handler: mux}

	s.logger.Info("websocket server listening", zap.String("addr", listener.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		<-errCh
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

// Stop closes every connection and the listener.
func (s *WebsocketServer) Stop() {
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = map[*websocket.Conn]struct{}{}
	s.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *WebsocketServer) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	logger := s.logger.With(zap.String("remote", conn.RemoteAddr().String()))
	logger.Info("websocket client connected")

	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		logger.Info("websocket client disconnected")
	}()

	var writeMu sync.Mutex
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pingInterval + pongTimeout))
		return nil
	})

	go s.pingLoop(ctx, conn, &writeMu)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		resp := s.engine.HandleMessage(ctx, message)
		if resp == nil {
			continue
		}

		writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, resp)
		writeMu.Unlock()
		if err != nil {
			logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

// pingLoop keeps the connection alive. A peer that misses the pong window
// trips the read deadline in the read loop.
func (s *WebsocketServer) pingLoop(ctx context.Context, conn *websocket.Conn, writeMu *sync.Mutex) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(pongTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
