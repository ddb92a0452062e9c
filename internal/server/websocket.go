package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/atilla-legacy/legacy-server-go/internal/config"
	"github.com/atilla-legacy/legacy-server-go/internal/game"
	"github.com/atilla-legacy/legacy-server-go/internal/game/rules"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// WebSocket message types.
const (
	MsgCreateGame = "create_game"
	MsgSubscribe  = "subscribe"
	MsgDispatch   = "dispatch"
	MsgAutoplay   = "autoplay"
	MsgGameState  = "game_state"
	MsgGameOver   = "game_over"
	MsgRemoved    = "game_removed"
	MsgError      = "error"
)

// WSMessage is the envelope for both directions.
type WSMessage struct {
	Type       string          `json:"type"`
	GameID     string          `json:"game_id,omitempty"`
	Seq        uint64          `json:"seq,omitempty"`
	Action     json.RawMessage `json:"action,omitempty"`
	Players    int             `json:"players,omitempty"`
	Difficulty string          `json:"difficulty,omitempty"`
	Enabled    bool            `json:"enabled,omitempty"`
	State      *game.GameState `json:"state,omitempty"`
	Error      string          `json:"error,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
}

type outbound struct {
	gameID string
	seq    uint64
	data   []byte
}

type subscription struct {
	client *client
	gameID string
}

type direct struct {
	client *client
	data   []byte
}

// Hub fans game states out to subscribed WebSocket clients and forwards
// their actions to the manager. All client bookkeeping happens on the
// goroutine running Run.
type Hub struct {
	manager  *game.Manager
	autoplay Autoplay
	logger   *zap.Logger
	upgrader websocket.Upgrader

	clients    map[*client]bool
	sent       map[string]uint64
	register   chan *client
	unregister chan *client
	subscribe  chan subscription
	broadcast  chan outbound
	unicast    chan direct

	// base bounds the hub and any autoplay loop it starts.
	base context.Context
}

// NewHub creates a hub that stops when ctx is done. autoplay may be nil.
func NewHub(ctx context.Context, m *game.Manager, autoplay Autoplay, logger *zap.Logger) *Hub {
	return &Hub{
		manager:  m,
		autoplay: autoplay,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]bool),
		sent:       make(map[string]uint64),
		register:   make(chan *client),
		unregister: make(chan *client),
		subscribe:  make(chan subscription),
		broadcast:  make(chan outbound, 256),
		unicast:    make(chan direct, 64),
		base:       ctx,
	}
}

// Run serves the hub until its context is done, then closes every client.
func (h *Hub) Run() {
	for {
		select {
		case <-h.base.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case sub := <-h.subscribe:
			if _, ok := h.clients[sub.client]; ok {
				sub.client.gameID = sub.gameID
			}

		case d := <-h.unicast:
			if _, ok := h.clients[d.client]; !ok {
				continue
			}
			select {
			case d.client.send <- d.data:
			default:
			}

		case msg := <-h.broadcast:
			// Notifications may arrive out of order; never send a state
			// older than one already fanned out for the game.
			if msg.seq <= h.sent[msg.gameID] {
				h.logger.Debug("stale update dropped",
					zap.String("game_id", msg.gameID),
					zap.Uint64("seq", msg.seq),
				)
				continue
			}
			h.sent[msg.gameID] = msg.seq
			// Every update carries the full state, so a client whose
			// buffer is full only misses intermediate states.
			for c := range h.clients {
				if c.gameID != msg.gameID {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.logger.Debug("client lagging, update skipped", zap.String("game_id", msg.gameID))
				}
			}
		}
	}
}

// HandleNotification is registered as the manager's notification handler.
// Updates carry the game's Seq; Run drops any that arrive after a newer one.
func (h *Hub) HandleNotification(n game.Notification) {
	msg := WSMessage{GameID: n.GameID, Seq: n.Seq}
	switch n.Type {
	case game.NotifyGameRemoved:
		msg.Type = MsgRemoved
	default:
		if n.State == nil {
			return
		}
		msg.Type = MsgGameState
		if n.State.IsOver() {
			msg.Type = MsgGameOver
		}
		msg.State = n.State
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode notification", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- outbound{gameID: n.GameID, seq: n.Seq, data: data}:
	case <-h.base.Done():
	}
}

// ServeHTTP upgrades the connection and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.base.Done():
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.base.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.reply(c, WSMessage{Type: MsgError, Error: "malformed message"})
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handleMessage(c *client, msg WSMessage) {
	switch msg.Type {
	case MsgCreateGame:
		difficulty := rules.Difficulty(msg.Difficulty)
		if difficulty == "" {
			difficulty = rules.Normal
		}
		id, _, err := h.manager.CreateGame(msg.Players, difficulty)
		if err != nil {
			h.reply(c, WSMessage{Type: MsgError, Error: err.Error()})
			return
		}
		h.follow(c, id)
		h.replyState(c, id)

	case MsgSubscribe:
		if _, err := h.manager.GetState(msg.GameID); err != nil {
			h.reply(c, WSMessage{Type: MsgError, GameID: msg.GameID, Error: errorText(err)})
			return
		}
		h.follow(c, msg.GameID)
		h.replyState(c, msg.GameID)

	case MsgDispatch:
		action, err := playerAction(msg.Action)
		if err != nil {
			h.reply(c, WSMessage{Type: MsgError, GameID: msg.GameID, Error: err.Error()})
			return
		}
		h.follow(c, msg.GameID)
		if _, err := h.manager.Dispatch(msg.GameID, action); err != nil {
			h.reply(c, WSMessage{Type: MsgError, GameID: msg.GameID, Error: errorText(err)})
		}

	case MsgAutoplay:
		if h.autoplay == nil {
			h.reply(c, WSMessage{Type: MsgError, GameID: msg.GameID, Error: "autoplay not available"})
			return
		}
		if err := h.autoplay.Set(h.base, msg.GameID, msg.Enabled); err != nil {
			h.reply(c, WSMessage{Type: MsgError, GameID: msg.GameID, Error: errorText(err)})
		}

	default:
		h.reply(c, WSMessage{Type: MsgError, Error: "unknown message type " + msg.Type})
	}
}

func (h *Hub) reply(c *client, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode reply", zap.Error(err))
		return
	}
	select {
	case h.unicast <- direct{client: c, data: data}:
	case <-h.base.Done():
	}
}

// replyState sends the current state with its Seq, so the client can order
// it against broadcasts racing on the other channel.
func (h *Hub) replyState(c *client, gameID string) {
	state, seq, err := h.manager.GetVersionedState(gameID)
	if err != nil {
		h.reply(c, WSMessage{Type: MsgError, GameID: gameID, Error: errorText(err)})
		return
	}
	h.reply(c, WSMessage{Type: MsgGameState, GameID: gameID, Seq: seq, State: state})
}

func (h *Hub) follow(c *client, gameID string) {
	select {
	case h.subscribe <- subscription{client: c, gameID: gameID}:
	case <-h.base.Done():
	}
}

// StartWebSocketServer serves the hub on cfg.Address until ctx is done.
func StartWebSocketServer(ctx context.Context, cfg config.WebSocketConfig, hub *Hub, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting WebSocket server", zap.String("address", cfg.Address), zap.String("path", cfg.Path))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
