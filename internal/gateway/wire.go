// ABOUTME: Conversions between bridge Struct messages and relay/service types.
// ABOUTME: Handles travel as decimal strings; payloads as standard base64.

package gateway

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
)

// Bridge message field names.
const (
	fieldName         = "name"
	fieldHandle       = "handle"
	fieldData         = "data"
	fieldInvalidState = "invalid_state"
	fieldKind         = "kind"
	fieldPayload      = "payload"
	fieldURL          = "url"
)

var errMissingHandle = errors.New("missing handle")

func handleValue(h relay.Handle) *structpb.Value {
	return structpb.NewStringValue(h.String())
}

// handleFrom reads the handle field. Numbers are accepted when they are
// exact integers.
func handleFrom(s *structpb.Struct) (relay.Handle, error) {
	v, ok := s.GetFields()[fieldHandle]
	if !ok {
		return 0, errMissingHandle
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return relay.ParseHandle(k.StringValue)
	case *structpb.Value_NumberValue:
		n := k.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, fmt.Errorf("handle %v is not an exact integer", n)
		}
		return relay.Handle(n), nil
	default:
		return 0, fmt.Errorf("handle has unsupported type %T", k)
	}
}

func stringFrom(s *structpb.Struct, field string) string {
	return s.GetFields()[field].GetStringValue()
}

func resolveRequest(name string, handle relay.Handle) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldName:   structpb.NewStringValue(name),
		fieldHandle: handleValue(handle),
	}}
}

func sendRequest(handle relay.Handle, data []byte) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldHandle: handleValue(handle),
		fieldData:   structpb.NewStringValue(relay.Encode(data)),
	}}
}

func closeRequest(handle relay.Handle) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldHandle: handleValue(handle),
	}}
}

func responseToStruct(resp service.Response) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		fieldInvalidState: structpb.NewBoolValue(resp.InvalidState),
		fieldData:         structpb.NewStringValue(relay.Encode(resp.Data)),
	}}
}

func responseFromStruct(s *structpb.Struct) (service.Response, error) {
	data, err := relay.Decode(stringFrom(s, fieldData))
	if err != nil {
		return service.Response{}, fmt.Errorf("decoding response data: %w", err)
	}
	return service.Response{
		InvalidState: s.GetFields()[fieldInvalidState].GetBoolValue(),
		Data:         data,
	}, nil
}

func messageToStruct(msg relay.Message) *structpb.Struct {
	fields := map[string]*structpb.Value{
		fieldKind: structpb.NewStringValue(string(msg.Kind)),
	}
	switch msg.Kind {
	case relay.KindPush:
		fields[fieldHandle] = handleValue(msg.Handle)
		fields[fieldPayload] = structpb.NewStringValue(msg.Payload)
	case relay.KindNavigate:
		fields[fieldURL] = structpb.NewStringValue(msg.URL)
	}
	return &structpb.Struct{Fields: fields}
}

func messageFromStruct(s *structpb.Struct) (relay.Message, error) {
	msg := relay.Message{Kind: relay.Kind(stringFrom(s, fieldKind))}
	switch msg.Kind {
	case relay.KindPush:
		h, err := handleFrom(s)
		if err != nil {
			return relay.Message{}, err
		}
		msg.Handle = h
		msg.Payload = stringFrom(s, fieldPayload)
	case relay.KindNavigate:
		msg.URL = stringFrom(s, fieldURL)
	default:
		return relay.Message{}, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	return msg, nil
}
