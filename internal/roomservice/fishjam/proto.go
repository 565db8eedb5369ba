// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_roomservice_fishjam

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// Socket messages are protobuf. The descriptors below follow the published
// fishjam protos (fishjam/agent_notifications.proto,
// fishjam/server_notifications.proto and fishjam/notifications/shared.proto),
// reduced to the messages a bridge sends or acts on. Unknown oneof members
// decode as unknown fields and are ignored.
var (
	wireFile = mustBuildWireFile()

	agentRequestDesc  = wireFile.Messages().ByName("AgentRequest")
	agentResponseDesc = wireFile.Messages().ByName("AgentResponse")
	serverMessageDesc = wireFile.Messages().ByName("ServerMessage")
)

// contentOneof is the oneof every socket envelope carries its payload in.
const contentOneof = "content"

type fieldSpec struct {
	name     string
	number   int32
	kind     descriptorpb.FieldDescriptorProto_Type
	typeName string
}

func scalarField(name string, number int32, kind descriptorpb.FieldDescriptorProto_Type) fieldSpec {
	return fieldSpec{name: name, number: number, kind: kind}
}

func messageField(name string, number int32, typeName string) fieldSpec {
	return fieldSpec{name: name, number: number, kind: descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, typeName: typeName}
}

func enumField(name string, number int32, typeName string) fieldSpec {
	return fieldSpec{name: name, number: number, kind: descriptorpb.FieldDescriptorProto_TYPE_ENUM, typeName: typeName}
}

func (s fieldSpec) build(oneof *int32) *descriptorpb.FieldDescriptorProto {
	fd := &descriptorpb.FieldDescriptorProto{
		Name:       proto.String(s.name),
		Number:     proto.Int32(s.number),
		Label:      descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:       s.kind.Enum(),
		OneofIndex: oneof,
	}
	if s.typeName != "" {
		fd.TypeName = proto.String(s.typeName)
	}
	return fd
}

func messageType(name string, fields ...fieldSpec) *descriptorpb.DescriptorProto {
	m := &descriptorpb.DescriptorProto{Name: proto.String(name)}
	for _, f := range fields {
		m.Field = append(m.Field, f.build(nil))
	}
	return m
}

// envelopeType builds a message whose fields all live in the content oneof.
func envelopeType(name string, nested []*descriptorpb.DescriptorProto, members ...fieldSpec) *descriptorpb.DescriptorProto {
	m := &descriptorpb.DescriptorProto{
		Name:       proto.String(name),
		NestedType: nested,
		OneofDecl:  []*descriptorpb.OneofDescriptorProto{{Name: proto.String(contentOneof)}},
	}
	for _, f := range members {
		m.Field = append(m.Field, f.build(proto.Int32(0)))
	}
	return m
}

func enumType(name string, values ...string) *descriptorpb.EnumDescriptorProto {
	e := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}
	for i, v := range values {
		e.Value = append(e.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(int32(i)),
		})
	}
	return e
}

const (
	typeString = descriptorpb.FieldDescriptorProto_TYPE_STRING
	typeBytes  = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	typeUint32 = descriptorpb.FieldDescriptorProto_TYPE_UINT32
)

func mustBuildWireFile() protoreflect.FileDescriptor {
	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("fishjam/bridge_socket.proto"),
		Package: proto.String("fishjam"),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enumType("TrackType", "TRACK_TYPE_UNSPECIFIED", "TRACK_TYPE_VIDEO", "TRACK_TYPE_AUDIO"),
			enumType("TrackEncoding", "TRACK_ENCODING_UNSPECIFIED", "TRACK_ENCODING_PCM16", "TRACK_ENCODING_OPUS"),
			enumType("EventType", "EVENT_TYPE_UNSPECIFIED", "EVENT_TYPE_SERVER_NOTIFICATION", "EVENT_TYPE_METRICS"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			messageType("Track",
				scalarField("id", 1, typeString),
				enumField("type", 2, ".fishjam.TrackType"),
				scalarField("metadata", 3, typeString),
			),
			envelopeType("AgentRequest",
				[]*descriptorpb.DescriptorProto{
					messageType("AuthRequest", scalarField("token", 1, typeString)),
					{
						Name: proto.String("AddTrack"),
						NestedType: []*descriptorpb.DescriptorProto{
							messageType("CodecParameters",
								enumField("encoding", 1, ".fishjam.TrackEncoding"),
								scalarField("sample_rate", 2, typeUint32),
								scalarField("channels", 3, typeUint32),
							),
						},
						Field: []*descriptorpb.FieldDescriptorProto{
							messageField("track", 1, ".fishjam.Track").build(nil),
							messageField("codec_params", 2, ".fishjam.AgentRequest.AddTrack.CodecParameters").build(nil),
						},
					},
					messageType("RemoveTrack", scalarField("track_id", 1, typeString)),
					messageType("TrackData", scalarField("track_id", 1, typeString), scalarField("data", 2, typeBytes)),
					messageType("InterruptTrack", scalarField("track_id", 1, typeString)),
				},
				messageField(string(frameAuthRequest), 1, ".fishjam.AgentRequest.AuthRequest"),
				messageField(string(frameAddTrack), 2, ".fishjam.AgentRequest.AddTrack"),
				messageField(string(frameRemoveTrack), 3, ".fishjam.AgentRequest.RemoveTrack"),
				messageField(string(frameTrackData), 4, ".fishjam.AgentRequest.TrackData"),
				messageField(string(frameInterruptTrack), 5, ".fishjam.AgentRequest.InterruptTrack"),
			),
			envelopeType("AgentResponse",
				[]*descriptorpb.DescriptorProto{
					messageType("Authenticated"),
					messageType("TrackData",
						scalarField("peer_id", 1, typeString),
						messageField("track", 2, ".fishjam.Track"),
						scalarField("data", 3, typeBytes),
					),
				},
				messageField(string(frameAuthenticated), 1, ".fishjam.AgentResponse.Authenticated"),
				messageField(string(frameTrackData), 2, ".fishjam.AgentResponse.TrackData"),
			),
			envelopeType("ServerMessage",
				[]*descriptorpb.DescriptorProto{
					messageType("RoomCrashed", scalarField("room_id", 1, typeString)),
					messageType("PeerConnected", scalarField("room_id", 1, typeString), scalarField("peer_id", 2, typeString)),
					messageType("PeerDisconnected", scalarField("room_id", 1, typeString), scalarField("peer_id", 2, typeString)),
					messageType("PeerCrashed",
						scalarField("room_id", 1, typeString),
						scalarField("peer_id", 2, typeString),
						scalarField("reason", 3, typeString),
					),
					messageType("Authenticated"),
					messageType("AuthRequest", scalarField("token", 1, typeString)),
					messageType("SubscribeRequest", enumField("event_type", 1, ".fishjam.EventType")),
					messageType("SubscribeResponse", enumField("event_type", 1, ".fishjam.EventType")),
					messageType("RoomCreated", scalarField("room_id", 1, typeString)),
					messageType("RoomDeleted", scalarField("room_id", 1, typeString)),
				},
				messageField(string(frameRoomCrashed), 1, ".fishjam.ServerMessage.RoomCrashed"),
				messageField(string(framePeerConnected), 2, ".fishjam.ServerMessage.PeerConnected"),
				messageField(string(framePeerDisconnected), 3, ".fishjam.ServerMessage.PeerDisconnected"),
				messageField(string(framePeerCrashed), 4, ".fishjam.ServerMessage.PeerCrashed"),
				messageField(string(frameAuthenticated), 6, ".fishjam.ServerMessage.Authenticated"),
				messageField(string(frameAuthRequest), 7, ".fishjam.ServerMessage.AuthRequest"),
				messageField(string(frameSubscribeRequest), 8, ".fishjam.ServerMessage.SubscribeRequest"),
				messageField(string(frameSubscribeResponse), 9, ".fishjam.ServerMessage.SubscribeResponse"),
				messageField(string(frameRoomCreated), 10, ".fishjam.ServerMessage.RoomCreated"),
				messageField(string(frameRoomDeleted), 11, ".fishjam.ServerMessage.RoomDeleted"),
			),
		},
	}

	fd, err := protodesc.NewFile(file, new(protoregistry.Files))
	if err != nil {
		panic("fishjam: invalid socket schema: " + err.Error())
	}
	return fd
}
