// Package signal is the browser-facing WebSocket adapter: it accepts
// connections, runs the per-connection read/write pumps and dispatches
// inbound envelope commands onto the session's bridge.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/app"
	"github.com/dkeye/webmumble/internal/config"
	"github.com/dkeye/webmumble/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// BridgeWSController supervises browser connections: one Bridge per
// WebSocket, torn down unconditionally when the read loop exits.
type BridgeWSController struct {
	Registry *app.Registry
	Dial     core.VoiceDialer
	Cfg      *config.Config

	connectLimiter *attemptLimiter
}

func NewBridgeWSController(reg *app.Registry, dial core.VoiceDialer, cfg *config.Config) *BridgeWSController {
	return &BridgeWSController{
		Registry:       reg,
		Dial:           dial,
		Cfg:            cfg,
		connectLimiter: newAttemptLimiter(cfg.ConnectLimit, cfg.ConnectInterval),
	}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleBridge upgrades one browser connection and starts its session.
func (ctl *BridgeWSController) HandleBridge(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendQueue),
	}

	bridge := app.NewBridge(conn, ctl.Dial, app.BridgeOptions{
		AudioWindow:     ctl.Cfg.AudioWindow,
		AudioGuard:      ctl.Cfg.AudioGuard,
		MaxMessageBytes: ctl.Cfg.MaxMessageBytes,
	})

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, bridge, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, bridge, conn)
}
