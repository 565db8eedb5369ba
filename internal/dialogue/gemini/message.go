// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_dialogue_gemini

import (
	"strings"

	internal_audio "github.com/rapidaai/live-bridge/internal/audio"
	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"google.golang.org/genai"
)

// toDialogueMessage flattens a server message. Inline audio of every model
// turn part is joined in part order into Audio. Audio parts whose MIME type
// names a format other than DialogueOutputFormat are dropped. ok is false for
// messages the bridge has no use for, such as setup completion.
func toDialogueMessage(msg *genai.LiveServerMessage, logger commons.Logger) (internal_type.DialogueMessage, bool) {
	var out internal_type.DialogueMessage
	if msg == nil {
		return out, false
	}

	if sc := msg.ServerContent; sc != nil {
		if sc.ModelTurn != nil {
			for _, part := range sc.ModelTurn.Parts {
				if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
					continue
				}
				if !isOutputAudio(part.InlineData.MIMEType, logger) {
					continue
				}
				out.Audio = append(out.Audio, part.InlineData.Data...)
			}
		}
		if sc.Interrupted || sc.TurnComplete {
			out.ServerContent = &internal_type.DialogueServerContent{
				Interrupted:  sc.Interrupted,
				TurnComplete: sc.TurnComplete,
			}
		}
	}
	out.GoAway = msg.GoAway != nil

	ok := out.HasAudio() || out.ServerContent != nil || out.GoAway
	return out, ok
}

// isOutputAudio accepts untagged parts and audio tagged with the output rate.
func isOutputAudio(mimeType string, logger commons.Logger) bool {
	if mimeType == "" {
		return true
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return false
	}
	f, err := internal_audio.ParseMIMEType(mimeType)
	if err != nil {
		logger.Warnw("dropping model audio", "kind", "relay_delivery", "mimeType", mimeType, "error", err)
		return false
	}
	if f.SampleRate != internal_audio.DialogueOutputFormat.SampleRate || f.Channels != internal_audio.DialogueOutputFormat.Channels {
		logger.Warnw("dropping model audio", "kind", "relay_delivery", "mimeType", mimeType, "want", internal_audio.DialogueOutputFormat.String())
		return false
	}
	return true
}
