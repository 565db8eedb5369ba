// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_mocks

import (
	"context"
	"sync"

	internal_type "github.com/rapidaai/live-bridge/internal/type"
)

type DialogueConnector struct {
	rec *Recorder

	mu       sync.Mutex
	sessions []*DialogueSession
}

func NewDialogueConnector(rec *Recorder) *DialogueConnector {
	return &DialogueConnector{rec: rec}
}

func (c *DialogueConnector) Connect(ctx context.Context, cfg internal_type.DialogueConfig) (internal_type.DialogueSession, error) {
	if err := c.rec.record(OpConnect, cfg); err != nil {
		return nil, err
	}
	s := NewDialogueSession(c.rec)
	c.mu.Lock()
	c.sessions = append(c.sessions, s)
	c.mu.Unlock()
	return s, nil
}

// LastSession returns the most recently opened session, or nil.
func (c *DialogueConnector) LastSession() *DialogueSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sessions) == 0 {
		return nil
	}
	return c.sessions[len(c.sessions)-1]
}

// DialogueSession delivers whatever is pushed with Push on Messages.
type DialogueSession struct {
	rec *Recorder

	messages chan internal_type.DialogueMessage
	pushMu   sync.Mutex
	ended    bool

	once sync.Once
	done chan struct{}
	err  error
}

func NewDialogueSession(rec *Recorder) *DialogueSession {
	return &DialogueSession{
		rec:      rec,
		messages: make(chan internal_type.DialogueMessage, 64),
		done:     make(chan struct{}),
	}
}

func (s *DialogueSession) SendRealtimeInput(ctx context.Context, input internal_type.RealtimeInput) error {
	return s.rec.record(OpSendRealtimeInput, input)
}

func (s *DialogueSession) Messages() <-chan internal_type.DialogueMessage {
	return s.messages
}

// Push delivers one server event as if the model produced it.
func (s *DialogueSession) Push(msg internal_type.DialogueMessage) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	if s.ended {
		return
	}
	s.messages <- msg
}

// End simulates the dialogue service closing the session.
func (s *DialogueSession) End(err error) {
	s.finish(err)
}

func (s *DialogueSession) finish(err error) {
	s.once.Do(func() {
		s.pushMu.Lock()
		s.ended = true
		close(s.messages)
		s.pushMu.Unlock()
		s.err = err
		close(s.done)
	})
}

func (s *DialogueSession) Done() <-chan struct{} {
	return s.done
}

func (s *DialogueSession) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *DialogueSession) Close() error {
	err := s.rec.record(OpCloseSession)
	s.finish(nil)
	return err
}
