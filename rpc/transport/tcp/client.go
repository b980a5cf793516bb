package tcp

import (
	"fmt"
	"net"
	"time"

	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/transport"
)

// clientConnector implements the IClientConnector interface for TCP sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "tcp"
}

func (c *clientConnector) Connect(endpoint string, config common.ClientConfig) (net.Conn, error) {
	timeout := time.Duration(config.TimeoutSecond) * time.Second
	conn, err := net.DialTimeout("tcp", endpoint, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	return conn, nil
}

// UpgradeConnection applies performance optimizations to a TCP connection
// using configuration values from TCPConf and SocketConf
func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to upgrade
	}

	// Disable Nagle's algorithm, requests are small and latency bound
	if err := tcpConn.SetNoDelay(config.Transport.TCPNoDelay); err != nil {
		return err
	}

	if config.Transport.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.Transport.WriteBufferSize); err != nil {
			return err
		}
	}

	if config.Transport.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.Transport.ReadBufferSize); err != nil {
			return err
		}
	}

	if config.Transport.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(config.Transport.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	if config.Transport.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(config.Transport.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Connector Factory Method
// --------------------------------------------------------------------------

// NewTCPConnector creates a connector that dials nodes over TCP
func NewTCPConnector() transport.IClientConnector {
	return &clientConnector{}
}
