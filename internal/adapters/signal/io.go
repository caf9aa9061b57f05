package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/app"
	"github.com/dkeye/webmumble/internal/core"
)

const writeWait = 5 * time.Second

func (ctl *BridgeWSController) writePump(ctx context.Context, c *wsConn) {
	ping := time.NewTicker(ctl.Cfg.PingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *BridgeWSController) readPump(ctx context.Context, sid core.SessionID, bridge *app.Bridge, c *wsConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		bridge.Disconnect()
		ctl.Registry.Unbind(sid, bridge)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				// Normal closure and network errors alike end the session.
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read end")
				return
			}
			ctl.handleMessage(sid, bridge, data)
		}
	}
}

// handleMessage dispatches one inbound envelope. Unknown commands and
// malformed payloads are logged and dropped; the session is unaffected.
func (ctl *BridgeWSController) handleMessage(sid core.SessionID, bridge *app.Bridge, data []byte) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "connect":
		ctl.handleConnect(sid, bridge, env.Payload)
	case "chat":
		ctl.handleChat(bridge, env.Payload)
	case "join_channel":
		ctl.handleJoinChannel(bridge, env.Payload)
	case "audio":
		ctl.handleAudio(bridge, env.Payload)
	case "disconnect":
		bridge.Disconnect()
	case "video_channel":
		ctl.handleVideoChannel(bridge, env.Payload)
	case "video_direct":
		ctl.handleVideoDirect(bridge, env.Payload)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown command")
	}
}
