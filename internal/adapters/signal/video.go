package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/app"
	"github.com/dkeye/webmumble/internal/domain"
)

func (ctl *BridgeWSController) handleVideoChannel(bridge *app.Bridge, data []byte) {
	type videoChannelPayload struct {
		Data      json.RawMessage `json:"data"`
		ChannelID domain.FlexID   `json:"channelId"`
	}
	var p videoChannelPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad video_channel payload")
		return
	}
	if len(p.Data) == 0 {
		log.Warn().Str("module", "signal").Msg("video_channel without data")
		return
	}
	bridge.SendVideoChannel(p.Data, p.ChannelID)
}

func (ctl *BridgeWSController) handleVideoDirect(bridge *app.Bridge, data []byte) {
	type videoDirectPayload struct {
		Data      json.RawMessage `json:"data"`
		TargetIDs []domain.FlexID `json:"targetIds"`
	}
	var p videoDirectPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad video_direct payload")
		return
	}
	if len(p.Data) == 0 || len(p.TargetIDs) == 0 {
		log.Warn().Str("module", "signal").Int("targets", len(p.TargetIDs)).Msg("video_direct without data or targets")
		return
	}
	bridge.SendVideoDirect(p.Data, p.TargetIDs)
}
