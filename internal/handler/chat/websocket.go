package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zhouzirui/zai-studio/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/zai-studio/backend/internal/service/chat"
	"github.com/zhouzirui/zai-studio/backend/pkg/logger"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler 通过 WebSocket 收发聊天消息，并推送会话记录的变化
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, log *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.OrNop(log).Named("websocket"),
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	conn      *websocket.Conn
	sessionID string

	mu sync.Mutex
}

func (c *wsConn) send(kind string, data interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(outgoingMessage{
		Type:      kind,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.chatSvc == nil {
		http.Error(w, "chat service unavailable", http.StatusServiceUnavailable)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw, sessionID: sessionID}
	log := h.logger.With(zap.String("session", sessionID))
	log.Info("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(readTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(readTimeout))
	})

	events := session.Subscribe()
	defer session.Unsubscribe(events)

	if err := conn.send("connected", session.Info()); err != nil {
		return
	}

	go h.forwardEvents(ctx, conn, events)
	go h.pingLoop(ctx, conn)

	var inflight sync.WaitGroup
	defer inflight.Wait()

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", zap.Error(err))
			}
			cancel()
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				_ = conn.send("error", map[string]string{"message": chatservice.ErrEmptyMessage.Error()})
				continue
			}
			if session.Busy() {
				_ = conn.send("busy", map[string]string{"message": chatservice.ErrSessionBusy.Error()})
				continue
			}
			inflight.Add(1)
			go func(text string) {
				defer inflight.Done()
				h.reply(ctx, conn, session, text)
			}(msg.Text)
		default:
			_ = conn.send("error", map[string]string{"message": "unsupported message type: " + msg.Type})
		}
	}
}

func (h *WebSocketHandler) reply(ctx context.Context, conn *wsConn, session *chatservice.Session, text string) {
	turn, err := session.Send(ctx, text, func(snapshot string) {
		_ = conn.send("snapshot", map[string]string{"content": snapshot})
	})
	switch {
	case err == nil:
		_ = conn.send("done", turn)
	case errors.Is(err, chatservice.ErrSessionBusy):
		_ = conn.send("busy", map[string]string{"message": err.Error()})
	default:
		h.logger.Warn("reply failed", zap.String("session", session.ID()), zap.Error(err))
		_ = conn.send("error", map[string]string{"message": chatservice.FailureMessage})
	}
}

func (h *WebSocketHandler) forwardEvents(ctx context.Context, conn *wsConn, events <-chan chat.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.send("transcript", evt); err != nil {
				return
			}
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
