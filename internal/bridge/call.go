// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_bridge

import (
	"sync"
	"time"

	internal_callcontext "github.com/rapidaai/live-bridge/internal/callcontext"
	internal_relay "github.com/rapidaai/live-bridge/internal/relay"
)

// Termination reasons recorded on the call.
const (
	ReasonDialogueClosed    = "dialogue_closed"
	ReasonAgentDisconnected = "agent_disconnected"
	ReasonRoomDeleted       = "room_deleted"
	ReasonRoomCrashed       = "room_crashed"
	ReasonPeerDisconnected  = "peer_disconnected"
	ReasonPeerCrashed       = "peer_crashed"
	ReasonRequested         = "requested"
	ReasonShutdown          = "shutdown"
)

// Call is one bridged conversation and its lifecycle state.
type Call struct {
	cc *internal_callcontext.CallContext

	mu     sync.Mutex
	state  internal_callcontext.State
	reason string

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	inbound     *internal_relay.Inbound
	outbound    *internal_relay.Outbound
	interrupter *internal_relay.Interrupter
}

func newCall(cc *internal_callcontext.CallContext) *Call {
	return &Call{
		cc:    cc,
		state: internal_callcontext.StateIdle,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

func (c *Call) ID() string {
	return c.cc.ID
}

func (c *Call) RoomID() string {
	return c.cc.RoomID
}

func (c *Call) PeerID() string {
	return c.cc.PeerID
}

func (c *Call) AgentID() string {
	if c.cc.Agent == nil {
		return ""
	}
	return c.cc.Agent.ID()
}

func (c *Call) CreatedAt() time.Time {
	return c.cc.CreatedAt
}

func (c *Call) State() internal_callcontext.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reason is why the call stopped, or "" while it runs.
func (c *Call) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Done is closed once every resource of the call has been released.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

func (c *Call) transition(to internal_callcontext.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := internal_callcontext.Transition(c.state, to); err != nil {
		return err
	}
	c.state = to
	return nil
}

// requestStop records the first termination reason and wakes the watcher.
// Later requests are ignored.
func (c *Call) requestStop(reason string) bool {
	requested := false
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.reason = reason
		c.mu.Unlock()
		close(c.stop)
		requested = true
	})
	return requested
}

// Stats returns the relay counters of an active or finished call.
func (c *Call) Stats() (inbound, outbound internal_relay.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inbound != nil {
		inbound = c.inbound.Stats()
	}
	if c.outbound != nil {
		outbound = c.outbound.Stats()
	}
	return inbound, outbound
}
