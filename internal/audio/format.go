// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Encoding string

const (
	EncodingPCM16 Encoding = "pcm16"
)

var (
	ErrInvalidFormat   = errors.New("audio: invalid format")
	ErrEmptyChunk      = errors.New("audio: empty chunk")
	ErrMisalignedChunk = errors.New("audio: chunk is not aligned to sample frames")
)

// Format describes raw PCM audio on one side of the bridge. Both the room
// service and the dialogue service fix their formats per direction, so every
// chunk carries the format it was produced in and is validated against it.
type Format struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int
}

// NewLinear16MonoFormat returns signed 16-bit little-endian mono PCM at rate.
func NewLinear16MonoFormat(rate int) Format {
	return Format{
		Encoding:   EncodingPCM16,
		SampleRate: rate,
		Channels:   1,
		BitDepth:   16,
	}
}

var (
	// DialogueInputFormat is what the dialogue service accepts as realtime
	// input. The room agent subscribes to human tracks in the same format.
	DialogueInputFormat = NewLinear16MonoFormat(16000)

	// DialogueOutputFormat is what the dialogue service speaks. The agent's
	// output track is created with it.
	DialogueOutputFormat = NewLinear16MonoFormat(24000)
)

func (f Format) Validate() error {
	if f.Encoding != EncodingPCM16 {
		return fmt.Errorf("%w: unsupported encoding %q", ErrInvalidFormat, f.Encoding)
	}
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channels %d", ErrInvalidFormat, f.Channels)
	}
	if f.BitDepth != 16 {
		return fmt.Errorf("%w: bit depth %d for %s", ErrInvalidFormat, f.BitDepth, f.Encoding)
	}
	return nil
}

// FrameSize is the number of bytes in one sample across all channels.
func (f Format) FrameSize() int {
	return f.Channels * f.BitDepth / 8
}

// BytesRate is the number of bytes per second of audio.
func (f Format) BytesRate() int {
	return f.SampleRate * f.FrameSize()
}

// Duration returns how long n bytes of audio in this format play for.
func (f Format) Duration(n int) time.Duration {
	rate := f.BytesRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// MIMEType is the descriptor the dialogue service expects on realtime input,
// e.g. "audio/pcm;rate=16000".
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}

func (f Format) String() string {
	return fmt.Sprintf("%s/%dHz/%dch", f.Encoding, f.SampleRate, f.Channels)
}

// ParseMIMEType reads an "audio/pcm;rate=N" descriptor. A missing rate
// parameter yields rate 0, which fails Validate.
func ParseMIMEType(mimeType string) (Format, error) {
	parts := strings.Split(mimeType, ";")
	base := strings.ToLower(strings.TrimSpace(parts[0]))
	if base != "audio/pcm" && base != "audio/l16" {
		return Format{}, fmt.Errorf("%w: unsupported mime type %q", ErrInvalidFormat, mimeType)
	}
	f := NewLinear16MonoFormat(0)
	for _, p := range parts[1:] {
		key, value, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return Format{}, fmt.Errorf("%w: bad %s in %q", ErrInvalidFormat, key, mimeType)
		}
		switch strings.ToLower(key) {
		case "rate":
			f.SampleRate = n
		case "channels":
			f.Channels = n
		}
	}
	return f, f.Validate()
}
