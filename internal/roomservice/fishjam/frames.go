// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// =============================================================================
// REST payloads
// =============================================================================

type envelope[T any] struct {
	Data T `json:"data"`
}

type roomConfig struct {
	RoomType string `json:"roomType,omitempty"`
}

type roomData struct {
	Room struct {
		ID string `json:"id"`
	} `json:"room"`
}

type peerRequest struct {
	Type    string      `json:"type"`
	Options interface{} `json:"options"`
}

type webrtcPeerOptions struct {
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type agentOutput struct {
	AudioFormat     string `json:"audioFormat"`
	AudioSampleRate int    `json:"audioSampleRate"`
}

type agentPeerOptions struct {
	Output        agentOutput `json:"output"`
	SubscribeMode string      `json:"subscribeMode"`
}

type peerData struct {
	Peer struct {
		ID string `json:"id"`
	} `json:"peer"`
	Token string `json:"token"`
}

type errorBody struct {
	Errors interface{} `json:"errors"`
}

// =============================================================================
// Socket frames
// =============================================================================

// frameType names the oneof member of a socket envelope that carries the
// frame, so it doubles as the protobuf field name.
type frameType string

const (
	// both sockets
	frameAuthRequest   frameType = "auth_request"
	frameAuthenticated frameType = "authenticated"

	// agent socket
	frameAddTrack       frameType = "add_track"
	frameRemoveTrack    frameType = "remove_track"
	frameTrackData      frameType = "track_data"
	frameInterruptTrack frameType = "interrupt_track"

	// server socket
	frameSubscribeRequest  frameType = "subscribe_request"
	frameSubscribeResponse frameType = "subscribe_response"
	frameRoomCreated       frameType = "room_created"
	frameRoomDeleted       frameType = "room_deleted"
	frameRoomCrashed       frameType = "room_crashed"
	framePeerConnected     frameType = "peer_connected"
	framePeerDisconnected  frameType = "peer_disconnected"
	framePeerCrashed       frameType = "peer_crashed"
)

const (
	trackTypeAudio           = "audio"
	eventServerNotifications = "serverNotification"
)

var (
	trackTypes = map[string]protoreflect.Name{
		trackTypeAudio: "TRACK_TYPE_AUDIO",
		"video":        "TRACK_TYPE_VIDEO",
	}
	trackEncodings = map[string]protoreflect.Name{
		"pcm16": "TRACK_ENCODING_PCM16",
		"opus":  "TRACK_ENCODING_OPUS",
	}
	eventTypes = map[string]protoreflect.Name{
		eventServerNotifications: "EVENT_TYPE_SERVER_NOTIFICATION",
	}
)

type trackInfo struct {
	ID       string
	Type     string
	Metadata map[string]interface{}
}

type codecParameters struct {
	Encoding   string
	SampleRate int
	Channels   int
}

// frame is the decoded content of one socket message. Only the fields the
// frame type defines are set.
type frame struct {
	Type            frameType
	Token           string
	EventType       string
	Track           *trackInfo
	CodecParameters *codecParameters
	RoomID          string
	PeerID          string
	TrackID         string
	Data            []byte
	Reason          string
}

// marshalFrame encodes f as the content of an envelope message.
func marshalFrame(envelope protoreflect.MessageDescriptor, f frame) ([]byte, error) {
	field := envelope.Fields().ByName(protoreflect.Name(f.Type))
	if field == nil || field.ContainingOneof() == nil {
		return nil, fmt.Errorf("%s does not carry %s frames", envelope.Name(), f.Type)
	}
	content := dynamicpb.NewMessage(field.Message())
	if err := setContent(content, f); err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", f.Type, err)
	}
	msg := dynamicpb.NewMessage(envelope)
	msg.Set(field, protoreflect.ValueOfMessage(content))
	return proto.Marshal(msg)
}

// unmarshalFrame decodes an envelope message. Content this bridge does not
// know yields a frame with an empty Type.
func unmarshalFrame(envelope protoreflect.MessageDescriptor, data []byte) (frame, error) {
	msg := dynamicpb.NewMessage(envelope)
	if err := proto.Unmarshal(data, msg); err != nil {
		return frame{}, err
	}
	field := msg.WhichOneof(envelope.Oneofs().ByName(contentOneof))
	if field == nil {
		return frame{}, nil
	}
	f := frame{Type: frameType(field.Name())}
	var err error
	msg.Get(field).Message().Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		err = getContent(&f, fd, v)
		return err == nil
	})
	if err != nil {
		return frame{}, fmt.Errorf("failed to decode %s frame: %w", f.Type, err)
	}
	return f, nil
}

func setContent(m protoreflect.Message, f frame) error {
	fields := m.Descriptor().Fields()
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		var err error
		switch fd.Name() {
		case "token":
			setString(m, fd, f.Token)
		case "room_id":
			setString(m, fd, f.RoomID)
		case "peer_id":
			setString(m, fd, f.PeerID)
		case "track_id":
			setString(m, fd, f.TrackID)
		case "reason":
			setString(m, fd, f.Reason)
		case "data":
			if len(f.Data) > 0 {
				m.Set(fd, protoreflect.ValueOfBytes(f.Data))
			}
		case "event_type":
			err = setEnum(m, fd, eventTypes, f.EventType)
		case "track":
			if f.Track != nil {
				err = setTrack(m.Mutable(fd).Message(), f.Track)
			}
		case "codec_params":
			if p := f.CodecParameters; p != nil {
				params := m.Mutable(fd).Message()
				pf := params.Descriptor().Fields()
				if err = setEnum(params, pf.ByName("encoding"), trackEncodings, p.Encoding); err == nil {
					params.Set(pf.ByName("sample_rate"), protoreflect.ValueOfUint32(uint32(p.SampleRate)))
					params.Set(pf.ByName("channels"), protoreflect.ValueOfUint32(uint32(p.Channels)))
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func setTrack(m protoreflect.Message, t *trackInfo) error {
	fields := m.Descriptor().Fields()
	setString(m, fields.ByName("id"), t.ID)
	if err := setEnum(m, fields.ByName("type"), trackTypes, t.Type); err != nil {
		return err
	}
	if len(t.Metadata) > 0 {
		metadata, err := json.Marshal(t.Metadata)
		if err != nil {
			return fmt.Errorf("track metadata: %w", err)
		}
		setString(m, fields.ByName("metadata"), string(metadata))
	}
	return nil
}

func getContent(f *frame, fd protoreflect.FieldDescriptor, v protoreflect.Value) error {
	switch fd.Name() {
	case "token":
		f.Token = v.String()
	case "room_id":
		f.RoomID = v.String()
	case "peer_id":
		f.PeerID = v.String()
	case "track_id":
		f.TrackID = v.String()
	case "reason":
		f.Reason = v.String()
	case "data":
		f.Data = v.Bytes()
	case "event_type":
		f.EventType = enumKey(fd, v, eventTypes)
	case "track":
		t := &trackInfo{}
		tf := v.Message().Descriptor().Fields()
		t.ID = v.Message().Get(tf.ByName("id")).String()
		t.Type = enumKey(tf.ByName("type"), v.Message().Get(tf.ByName("type")), trackTypes)
		if metadata := v.Message().Get(tf.ByName("metadata")).String(); metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &t.Metadata); err != nil {
				return fmt.Errorf("track metadata: %w", err)
			}
		}
		f.Track = t
	case "codec_params":
		pm := v.Message()
		pf := pm.Descriptor().Fields()
		f.CodecParameters = &codecParameters{
			Encoding:   enumKey(pf.ByName("encoding"), pm.Get(pf.ByName("encoding")), trackEncodings),
			SampleRate: int(pm.Get(pf.ByName("sample_rate")).Uint()),
			Channels:   int(pm.Get(pf.ByName("channels")).Uint()),
		}
	}
	return nil
}

func setString(m protoreflect.Message, fd protoreflect.FieldDescriptor, s string) {
	if s != "" {
		m.Set(fd, protoreflect.ValueOfString(s))
	}
}

func setEnum(m protoreflect.Message, fd protoreflect.FieldDescriptor, names map[string]protoreflect.Name, key string) error {
	name, ok := names[key]
	if !ok {
		return fmt.Errorf("unsupported %s %q", fd.Name(), key)
	}
	m.Set(fd, protoreflect.ValueOfEnum(fd.Enum().Values().ByName(name).Number()))
	return nil
}

// enumKey maps an enum value back to its key in names, or "" when unknown.
func enumKey(fd protoreflect.FieldDescriptor, v protoreflect.Value, names map[string]protoreflect.Name) string {
	ev := fd.Enum().Values().ByNumber(v.Enum())
	if ev == nil {
		return ""
	}
	for key, name := range names {
		if name == ev.Name() {
			return key
		}
	}
	return ""
}
