// Package rpc provides the communication layer between the client and the
// nodes of a cluster.
//
// The package is organized into several subpackages:
//
//   - common: Request and response records, the client configuration, the
//     error taxonomy and logging.
//
//   - serializer: Conversion between requests/responses and frame payloads.
//     The protocol buffers codec implements the "pb0" protocol.
//
//   - transport: Connection to a single node. The base subpackage performs the
//     handshake and frames the messages, tcp dials the nodes and socktest runs
//     fake nodes for tests.
//
//   - bootstrap: Fetches cluster.xml and stores.xml from the metadata store of
//     any node.
//
//   - session: Owns the live connection, fails over between nodes and recycles
//     connections after a number of requests.
//
//   - client: The store client with get, put and delete of versioned values.
package rpc
