// Package codec encodes stats snapshots for the stats route and the CLI
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var ErrUnsupportedCodec = errors.New("unsupported codec")

// Codec encodes and decodes snapshot values
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
	ContentType() string
}

// Codec names
const (
	JSON      = "json"
	Protobuf  = "protobuf"
	ProtoJSON = "protojson"
)

// Get returns a codec by name
func Get(name string) (Codec, error) {
	switch name {
	case JSON, "":
		return JSONCodec{}, nil
	case Protobuf:
		return ProtobufCodec{}, nil
	case ProtoJSON:
		return ProtoJSONCodec{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, name)
}

// JSONCodec uses encoding/json
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error)    { return json.Marshal(v) }
func (JSONCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                    { return JSON }
func (JSONCodec) ContentType() string             { return "application/json" }

// ProtobufCodec writes the protobuf wire format. Plain maps are carried
// as google.protobuf.Struct.
type ProtobufCodec struct{}

func (ProtobufCodec) Encode(v any) ([]byte, error) {
	msg, err := toMessage(v)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(msg)
}

func (ProtobufCodec) Decode(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("value must implement proto.Message, got %T", v)
	}
	return proto.Unmarshal(data, msg)
}

func (ProtobufCodec) Name() string        { return Protobuf }
func (ProtobufCodec) ContentType() string { return "application/x-protobuf" }

// ProtoJSONCodec writes the canonical protobuf JSON mapping
type ProtoJSONCodec struct{}

func (ProtoJSONCodec) Encode(v any) ([]byte, error) {
	msg, err := toMessage(v)
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(msg)
}

func (ProtoJSONCodec) Decode(data []byte, v any) error {
	msg, ok := v.(proto.Message)
	if !ok {
		return fmt.Errorf("value must implement proto.Message, got %T", v)
	}
	return protojson.Unmarshal(data, msg)
}

func (ProtoJSONCodec) Name() string        { return ProtoJSON }
func (ProtoJSONCodec) ContentType() string { return "application/json" }

func toMessage(v any) (proto.Message, error) {
	switch m := v.(type) {
	case proto.Message:
		return m, nil
	case map[string]any:
		return structpb.NewStruct(m)
	}
	return nil, fmt.Errorf("cannot encode %T as protobuf", v)
}
