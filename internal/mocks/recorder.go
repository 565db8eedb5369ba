// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package internal_mocks provides in-memory room and dialogue services that
// record every call in one shared, ordered log and fail on demand.
package internal_mocks

import (
	"sync"
)

// Operation names recorded by the fakes.
const (
	OpCreateRoom        = "CreateRoom"
	OpCreatePeer        = "CreatePeer"
	OpCreateAgent       = "CreateAgent"
	OpCreateTrack       = "CreateTrack"
	OpConnect           = "Connect"
	OpSendData          = "SendData"
	OpInterruptTrack    = "InterruptTrack"
	OpSendRealtimeInput = "SendRealtimeInput"
	OpCloseSession      = "CloseSession"
	OpRemoveTrack       = "RemoveTrack"
	OpCloseAgent        = "CloseAgent"
	OpDeletePeer        = "DeletePeer"
	OpDeleteRoom        = "DeleteRoom"
)

type Call struct {
	Op   string
	Args []interface{}
}

// Recorder is the shared call log and failure table.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	fail  map[string]error
}

func NewRecorder() *Recorder {
	return &Recorder{fail: make(map[string]error)}
}

// FailOn makes every later call to op return err.
func (r *Recorder) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[op] = err
}

// record appends the call and returns the injected failure for op, if any.
func (r *Recorder) record(op string, args ...interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	return r.fail[op]
}

func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded operation names in call order.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		ops = append(ops, c.Op)
	}
	return ops
}

// CallsOf returns the recorded calls of op in order.
func (r *Recorder) CallsOf(op string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was called.
func (r *Recorder) Count(op string) int {
	return len(r.CallsOf(op))
}
