// Package serializer converts requests and responses of the session protocol
// into frame payloads and back.
//
// The package focuses on:
//   - Providing a consistent interface for the wire encodings a node understands
//   - Encoding exactly the fields each request and response kind carries
//   - Decoding tolerantly: unknown fields are skipped
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//     Its Protocol() is the tag announced in the connection handshake.
//
//   - protobufSerializerImpl: the "pb0" protocol. Requests are a VoldemortRequest
//     message (type, should_route, store and one of get/put/delete), responses
//     are GetResponse, GetVersionResponse, PutResponse or DeleteResponse messages.
//     Messages are written field by field with protowire, no generated code is
//     involved.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewProtobufSerializer()
//	data, err := s.SerializeRequest(*common.NewGetRequest("test", []byte("k"), true))
//	// ... send data, receive answer ...
//	var resp common.Response
//	err = s.DeserializeResponse(common.ReqTGet, answer, &resp)
package serializer
