// Package base implements the WireConnection: one session with one cluster
// node, independent of the network the connection runs over.
//
// The package focuses on:
//   - Protocol negotiation when a connection is opened
//   - Frame-based message exchange with a length prefix
//   - Mapping every socket failure to a common.ConnectionError
//
// Protocol:
//
//	Handshake: the client writes the protocol tag (3 ASCII bytes, e.g. "pb0"),
//	the node answers with exactly 2 bytes. Any answer but "ok" closes the
//	connection with common.ErrProtocolRejected.
//
//	Frame: 4 bytes length (int32, big endian) followed by the payload. The
//	format is the same for requests and responses. Frames above the
//	configured maximum are refused with common.ErrFrameTooLarge.
//
// Key Components:
//
//   - Conn: opened through a transport.IClientConnector, then WriteFrame,
//     ReadFrame or Exchange. Counts the requests it carried so the session can
//     recycle long lived connections. Close is terminal and idempotent.
//
//   - readFrame / writeFrame: the only place frames are assembled. Reads use
//     io.ReadFull, so payloads arriving in arbitrary small chunks are
//     reassembled completely.
//
// Thread Safety:
//
//	A Conn carries one request at a time and must not be used from multiple
//	goroutines concurrently. The session layer serializes access.
package base
