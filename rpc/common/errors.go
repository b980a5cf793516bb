package common

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolRejected is returned if a node does not acknowledge the protocol tag
	ErrProtocolRejected = errors.New("protocol not accepted")
	// ErrPeerClosed is returned if a node closes the connection before answering
	ErrPeerClosed = errors.New("connection closed by peer")
	// ErrConnectionClosed is returned when a closed connection is used
	ErrConnectionClosed = errors.New("connection is closed")
	// ErrAllConnectionsFailed is returned if no node of the cluster accepts a connection
	ErrAllConnectionsFailed = errors.New("connections to all nodes failed")
	// ErrAllNodesDown is returned if an operation failed on every node of the cluster
	ErrAllNodesDown = errors.New("all nodes are down, operation failed")
	// ErrAllBootstrapsFailed is returned if no bootstrap endpoint delivered the metadata
	ErrAllBootstrapsFailed = errors.New("all bootstrap attempts failed")
	// ErrKeyExists is returned by an insert if the key already has a value
	ErrKeyExists = errors.New("key already exists")
	// ErrFrameTooLarge is returned if a frame exceeds the length prefix or the configured maximum
	ErrFrameTooLarge = errors.New("frame too large")
)

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// ConnectionError is a transport failure: dial, handshake, read, write or an
// unexpected close. It is the only error kind that triggers a failover.
type ConnectionError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError is an error reported by the node in a response. It is never
// retried since the node rejected the request itself (e.g. an obsolete version).
type ProtocolError struct {
	Code    int32
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// ConfigurationError reports an unusable client or store configuration
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// BootstrapError is returned if the cluster metadata could not be fetched from
// any bootstrap endpoint. Err holds the failure of every attempt.
type BootstrapError struct {
	Err error
}

func (e *BootstrapError) Error() string {
	return fmt.Sprintf("%v: %v", ErrAllBootstrapsFailed, e.Err)
}

func (e *BootstrapError) Unwrap() []error {
	return []error{ErrAllBootstrapsFailed, e.Err}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// IsConnectionError reports whether err is (or wraps) a *ConnectionError
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
