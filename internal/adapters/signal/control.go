package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/app"
	"github.com/dkeye/webmumble/internal/core"
	"github.com/dkeye/webmumble/internal/domain"
)

const (
	defaultAddress  = "localhost"
	defaultPort     = 64738
	defaultUsername = "WebMumbleUser"
)

func (ctl *BridgeWSController) handleConnect(sid core.SessionID, bridge *app.Bridge, data []byte) {
	type connectPayload struct {
		Address  string        `json:"address"`
		Port     domain.FlexID `json:"port"`
		Username string        `json:"username"`
	}
	var p connectPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad connect payload")
		return
	}
	if p.Address == "" {
		p.Address = defaultAddress
	}
	port, ok := p.Port.Int()
	if !ok {
		port = defaultPort
	}
	if p.Username == "" {
		p.Username = defaultUsername
	}

	if !ctl.connectLimiter.Allow(sid) {
		log.Warn().Str("module", "signal").Str("sid", string(sid)).Msg("connect rate limited")
		bridge.Emit("error", domain.ErrorPayload{Message: "too many connection attempts"})
		return
	}

	if err := bridge.Connect(p.Address, port, p.Username); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("connection failed")
		bridge.Emit("error", domain.ErrorPayload{Message: err.Error()})
	}
}
