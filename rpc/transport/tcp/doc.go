// Package tcp implements the TCP connector the client uses to reach cluster
// nodes. The connector dials host:port endpoints and tunes the resulting
// socket; handshake and framing are done by the base package on top of it.
//
// Key Components:
//
//   - clientConnector: TCP specific implementation of transport.IClientConnector.
//     Applies TCP_NODELAY, socket buffer sizes, keep-alive and linger from
//     common.ClientTransportConfig.
package tcp
