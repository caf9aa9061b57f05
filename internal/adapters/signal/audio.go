package signal

import (
	"encoding/base64"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/webmumble/internal/app"
)

func (ctl *BridgeWSController) handleAudio(bridge *app.Bridge, data []byte) {
	type audioPayload struct {
		Data string `json:"data"`
	}
	var p audioPayload
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad audio payload")
		return
	}
	if p.Data == "" {
		return
	}
	pcm, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad audio base64")
		return
	}
	bridge.SendAudio(pcm)
}
