// Package session implements the SessionManager: the single live connection of
// a client and the failover around it.
//
// State machine:
//
//	Disconnected -> Connected(node i) -> (connection error) -> Connected(node i+1)
//
// Key Components:
//
//   - Manager.Execute: the only path requests take to the network. Runs an
//     Operation on the live connection. A common.ConnectionError closes the
//     connection and the operation is retried on the next node in round-robin
//     order, with at most one attempt per node. Errors reported by a node
//     (common.ProtocolError) are returned without retry.
//
//   - Proactive reconnect: before a request is sent, a connection that
//     already carried ReconnectInterval requests is replaced by a connection
//     to the next node. This bounds the load any single connection carries.
//
//   - NodeStatus: last success and failure per node. Informational only, the
//     round-robin order never skips a node.
//
//   - Metrics: requests, errors, failovers, reconnects and request duration per
//     session, kept in a VictoriaMetrics set and written in Prometheus format.
package session
