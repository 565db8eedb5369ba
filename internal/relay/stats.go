// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_relay

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of one relay's counters.
type Stats struct {
	Forwarded uint64
	Dropped   uint64
	// Audio is the playback duration of all forwarded chunks.
	Audio time.Duration
}

type counters struct {
	forwarded atomic.Uint64
	dropped   atomic.Uint64
	audio     atomic.Int64
}

func (c *counters) forward(d time.Duration) {
	c.forwarded.Add(1)
	c.audio.Add(int64(d))
}

func (c *counters) drop() {
	c.dropped.Add(1)
}

func (c *counters) snapshot() Stats {
	return Stats{
		Forwarded: c.forwarded.Load(),
		Dropped:   c.dropped.Load(),
		Audio:     time.Duration(c.audio.Load()),
	}
}
