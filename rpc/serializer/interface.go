package serializer

import (
	"fmt"

	"github.com/ValentinKolb/vold/rpc/common"
)

// IRPCSerializer converts requests and responses to the payload of a frame.
// The layout of a response depends on the request type, so it has to be known
// when decoding.
type IRPCSerializer interface {
	// Protocol returns the tag announced during the handshake (e.g. "pb0")
	Protocol() string
	// SerializeRequest serializes a request into a byte array
	SerializeRequest(req common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a request
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a response, resp.Type selects the layout
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes the response to a request of type t
	DeserializeResponse(t common.RequestType, b []byte, resp *common.Response) error
}

// ForProtocol returns the serializer implementing the given handshake protocol
func ForProtocol(protocol string) (IRPCSerializer, error) {
	switch protocol {
	case ProtocolBuffersTag:
		return NewProtobufSerializer(), nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", protocol)
	}
}
