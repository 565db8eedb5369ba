// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_dialogue_gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
	"github.com/rapidaai/live-bridge/pkg/commons"
	"github.com/rapidaai/live-bridge/pkg/utils"
	"google.golang.org/genai"
)

var errSessionClosed = errors.New("live session closed")

type session struct {
	live   liveSession
	logger commons.Logger

	sendMu   sync.Mutex
	messages chan internal_type.DialogueMessage

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
	errMu     sync.Mutex
	err       error
}

func newSession(live liveSession, bufferSize int, logger commons.Logger) *session {
	s := &session{
		live:     live,
		logger:   logger,
		messages: make(chan internal_type.DialogueMessage, bufferSize),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	utils.Go(context.Background(), s.receiveLoop, utils.LogPanic(logger))
	return s
}

func (s *session) Messages() <-chan internal_type.DialogueMessage {
	return s.messages
}

func (s *session) Done() <-chan struct{} {
	return s.done
}

func (s *session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// SendRealtimeInput streams one audio blob to the model.
func (s *session) SendRealtimeInput(ctx context.Context, input internal_type.RealtimeInput) error {
	if input.Audio == nil {
		return errors.New("realtime input has no audio")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return errSessionClosed
	}

	data, err := input.Audio.Bytes()
	if err != nil {
		return fmt.Errorf("failed to decode realtime audio: %w", err)
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.live.SendRealtimeInput(genai.LiveRealtimeInput{
		Audio: &genai.Blob{MIMEType: input.Audio.MIMEType, Data: data},
	})
}

func (s *session) receiveLoop() {
	var err error
	defer func() {
		close(s.messages)
		if s.isClosed() {
			err = nil
		}
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		close(s.done)
	}()

	for {
		var msg *genai.LiveServerMessage
		msg, err = s.live.Receive()
		if err != nil {
			if !s.isClosed() {
				s.logger.Warnw("live session receive stopped", "error", err)
			}
			return
		}
		if msg.SetupComplete != nil {
			s.logger.Debugf("live session setup complete")
		}

		out, ok := toDialogueMessage(msg, s.logger)
		if !ok {
			continue
		}
		select {
		case s.messages <- out:
		case <-s.closed:
			return
		}
	}
}

// Close ends the session. Safe to call more than once.
func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.live.Close()
	})
	return err
}
