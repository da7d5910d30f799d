package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xhad/seek/pkg/pipeline"
)

func (s *Server) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin applies the CORS origin list to websocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Message is the websocket frame in both directions. Clients send
// {"type":"query","content":...}; the server answers with status frames for
// each phase followed by one response or error frame.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Data    any    `json:"data,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
	log  *zap.Logger
}

func (w *wsConn) send(msgType, content string, data any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteJSON(Message{Type: msgType, Content: content, Data: data}); err != nil {
		w.log.Debug("Error sending message", zap.Error(err))
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ws := &wsConn{conn: conn, log: s.logger.With(zap.String("request_id", requestID(c)))}
	var wg sync.WaitGroup
	defer wg.Wait()

	// The request context outlives the hijacked connection; runs stop when
	// the read loop ends.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Warn("Error reading message", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.send("error", fmt.Sprintf("invalid message: %v", err), nil)
			continue
		}
		if msg.Type != "query" {
			ws.send("error", fmt.Sprintf("unsupported message type %q", msg.Type), nil)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, c, ws, msg)
		}()
	}
}

func (s *Server) handleMessage(parent context.Context, c *gin.Context, ws *wsConn, msg Message) {
	ctx, cancel := s.requestContext(parent, c)
	defer cancel()

	result, err := s.runner.Run(ctx, msg.Content, func(phase pipeline.Phase) {
		if phase == pipeline.PhaseStart || phase.Terminal() {
			return
		}
		ws.send("status", phase.String(), nil)
	})
	if err != nil {
		ws.send("error", err.Error(), nil)
		return
	}
	ws.send("response", result.Answer, result)
}
