// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_audio

import (
	"encoding/base64"
	"fmt"
	"time"
)

// Chunk is one unit of raw PCM audio tagged with its format. Ownership of the
// underlying bytes moves with the chunk; holders must not modify Data.
type Chunk struct {
	format Format
	data   []byte
}

// Blob is the tagged, text-encoded form of a chunk sent to the dialogue service.
// Blobs made by Encode also keep the raw bytes so binary transports skip the
// decode.
type Blob struct {
	MIMEType string
	Data     string

	raw []byte
}

var encoder = base64.StdEncoding

// NewChunk validates raw bytes against f. The slice is not copied.
func NewChunk(data []byte, f Format) (Chunk, error) {
	if err := f.Validate(); err != nil {
		return Chunk{}, err
	}
	if len(data) == 0 {
		return Chunk{}, ErrEmptyChunk
	}
	if len(data)%f.FrameSize() != 0 {
		return Chunk{}, fmt.Errorf("%w: %d bytes for %s", ErrMisalignedChunk, len(data), f)
	}
	return Chunk{format: f, data: data}, nil
}

// DecodeBase64 turns base64 text from the dialogue service into a chunk.
func DecodeBase64(text string, f Format) (Chunk, error) {
	data, err := encoder.DecodeString(text)
	if err != nil {
		return Chunk{}, fmt.Errorf("audio: invalid base64 payload: %w", err)
	}
	return NewChunk(data, f)
}

// Encode produces the base64 blob tagged with the chunk's MIME type.
func Encode(c Chunk) Blob {
	return Blob{
		MIMEType: c.format.MIMEType(),
		Data:     encoder.EncodeToString(c.data),
		raw:      c.data,
	}
}

func (c Chunk) Format() Format {
	return c.format
}

func (c Chunk) Data() []byte {
	return c.data
}

func (c Chunk) Len() int {
	return len(c.data)
}

func (c Chunk) Duration() time.Duration {
	return c.format.Duration(len(c.data))
}

// Bytes returns the raw audio, decoding Data only when the blob was built
// from text.
func (b Blob) Bytes() ([]byte, error) {
	if b.raw != nil {
		return b.raw, nil
	}
	data, err := encoder.DecodeString(b.Data)
	if err != nil {
		return nil, fmt.Errorf("audio: invalid base64 payload: %w", err)
	}
	return data, nil
}
