// Package common provides the data structures shared by all parts of the
// client: the request and response records, the client configuration, the
// error taxonomy and the logging setup.
//
// The package focuses on:
//   - Request/Response records for the binary session protocol
//   - Configuration of the client and its transport
//   - Error kinds that decide between failover and immediate failure
//   - Custom logging implementation integrated with Dragonboat's logger package
//
// Key Components:
//
//   - Request / Response: one record per operation kind (get, getVersion, put,
//     delete), created through factory functions like NewGetRequest.
//
//   - ClientConfig: store name, node id used for clock increments, conflict
//     resolver, bootstrap urls, handshake protocol and socket settings.
//
//   - ConnectionError: transport failures. The session retries them on the
//     next node. ProtocolError, ConfigurationError and BootstrapError are
//     returned to the caller without any retry.
//
//   - Logger: formats log lines as "LEVEL | package | message" and applies
//     the configured level to every client logger.
package common
