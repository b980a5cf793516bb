package transport

import (
	"net"

	"github.com/ValentinKolb/vold/rpc/common"
)

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint (host:port)
	Connect(endpoint string, config common.ClientConfig) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}
