// Package transport defines how the client reaches a cluster node.
//
// The package focuses on:
//   - Defining the connector contract the session layer dials nodes through
//   - Keeping socket specific tuning out of the framing and failover logic
//
// Key Components:
//
//   - IClientConnector: dials an endpoint and applies transport specific
//     settings (buffer sizes, TCP_NODELAY, keep-alive) to the new connection.
//
// Subpackages:
//
//   - base: the WireConnection. Performs the protocol handshake and exchanges
//     length prefixed frames over a connection obtained from a connector.
//   - tcp: the TCP connector used against real clusters.
//   - socktest: an in-process fake node for tests.
package transport
