// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package internal_type

import (
	"context"

	internal_audio "github.com/rapidaai/live-bridge/internal/audio"
)

const ModalityAudio = "AUDIO"

type DialogueConfig struct {
	Model              string
	ResponseModalities []string
	SystemInstruction  string
	Voice              string
}

type DialogueServerContent struct {
	Interrupted  bool
	TurnComplete bool
}

// DialogueMessage is one inbound event of a dialogue session. Data holds
// base64 audio; adapters whose SDK already decoded it set Audio instead. An
// event may carry audio, an interruption, both, or neither.
type DialogueMessage struct {
	Data          string
	Audio         []byte
	ServerContent *DialogueServerContent
	GoAway        bool
}

func (m DialogueMessage) Interrupted() bool {
	return m.ServerContent != nil && m.ServerContent.Interrupted
}

// HasAudio reports whether the event carries audio in either form.
func (m DialogueMessage) HasAudio() bool {
	return len(m.Audio) > 0 || m.Data != ""
}

func (m DialogueMessage) TurnComplete() bool {
	return m.ServerContent != nil && m.ServerContent.TurnComplete
}

type RealtimeInput struct {
	Audio *internal_audio.Blob
}

type DialogueConnector interface {
	Connect(ctx context.Context, cfg DialogueConfig) (DialogueSession, error)
}

// DialogueSession is a streaming conversation with the AI service.
// Messages is closed when the session ends; Done is closed at the same time.
type DialogueSession interface {
	SendRealtimeInput(ctx context.Context, input RealtimeInput) error
	Messages() <-chan DialogueMessage
	Done() <-chan struct{}
	Err() error
	Close() error
}
