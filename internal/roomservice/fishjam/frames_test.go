// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// wireFields splits one protobuf message into its length-delimited fields.
func wireFields(t *testing.T, b []byte) map[protowire.Number][]byte {
	t.Helper()
	out := map[protowire.Number][]byte{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.GreaterOrEqual(t, n, 0)
		b = b[n:]
		require.Equal(t, protowire.BytesType, typ, "field %d", num)
		v, n := protowire.ConsumeBytes(b)
		require.GreaterOrEqual(t, n, 0)
		out[num] = v
		b = b[n:]
	}
	return out
}

func TestMarshalFrame_TrackDataFieldNumbers(t *testing.T) {
	b, err := marshalFrame(agentRequestDesc, frame{Type: frameTrackData, TrackID: "track-1", Data: []byte{1, 2}})
	require.NoError(t, err)

	outer := wireFields(t, b)
	require.Len(t, outer, 1)
	inner := wireFields(t, outer[4])
	assert.Equal(t, []byte("track-1"), inner[1])
	assert.Equal(t, []byte{1, 2}, inner[2])
}

func TestMarshalFrame_RejectsFrameFromOtherEnvelope(t *testing.T) {
	_, err := marshalFrame(agentRequestDesc, frame{Type: frameRoomDeleted, RoomID: "room-1"})
	assert.Error(t, err)
}

func TestUnmarshalFrame_ServerNotification(t *testing.T) {
	inner := protowire.AppendTag(nil, 1, protowire.BytesType)
	inner = protowire.AppendString(inner, "room-1")
	inner = protowire.AppendTag(inner, 2, protowire.BytesType)
	inner = protowire.AppendString(inner, "peer-1")
	msg := protowire.AppendTag(nil, 3, protowire.BytesType)
	msg = protowire.AppendBytes(msg, inner)

	f, err := unmarshalFrame(serverMessageDesc, msg)
	require.NoError(t, err)
	assert.Equal(t, framePeerDisconnected, f.Type)
	assert.Equal(t, "room-1", f.RoomID)
	assert.Equal(t, "peer-1", f.PeerID)
}

func TestUnmarshalFrame_UnknownContentIsIgnored(t *testing.T) {
	msg := protowire.AppendTag(nil, 99, protowire.BytesType)
	msg = protowire.AppendBytes(msg, nil)

	f, err := unmarshalFrame(serverMessageDesc, msg)
	require.NoError(t, err)
	assert.Equal(t, frameType(""), f.Type)
}
