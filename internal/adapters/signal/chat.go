package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/app"
	"github.com/dkeye/webmumble/internal/domain"
)

func (ctl *BridgeWSController) handleChat(bridge *app.Bridge, data []byte) {
	type chatPayload struct {
		Text      string        `json:"text"`
		ChannelID domain.FlexID `json:"channelId"`
	}
	var p chatPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}
	log.Info().Str("module", "signal").Str("channel", string(p.ChannelID)).Int("bytes", len(p.Text)).Msg("chat send")
	bridge.SendChat(p.Text, p.ChannelID)
}

func (ctl *BridgeWSController) handleJoinChannel(bridge *app.Bridge, data []byte) {
	type joinPayload struct {
		ChannelID domain.FlexID `json:"channelId"`
	}
	var p joinPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join_channel payload")
		return
	}
	bridge.JoinChannel(p.ChannelID)
}
