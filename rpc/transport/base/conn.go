package base

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// protocolAck is the answer of a node that accepted the protocol tag
const protocolAck = "ok"

// Conn is a single session with one node. A Conn is opened, negotiates the
// protocol and exchanges frames until it is closed. A closed Conn can not be
// reopened.
//
// Conn is not safe for concurrent use: the protocol allows exactly one
// outstanding request per connection.
type Conn struct {
	conn         net.Conn
	endpoint     string
	timeout      time.Duration
	maxFrameSize int
	requestCount int
	closed       bool
}

// Open connects to endpoint through the connector, applies the connector
// specific settings and negotiates protocol. Every failure is a *common.ConnectionError.
func Open(connector transport.IClientConnector, endpoint, protocol string, config common.ClientConfig) (*Conn, error) {
	Logger.Debugf("Attempt to connect to %s", endpoint)

	netConn, err := connector.Connect(endpoint, config)
	if err != nil {
		return nil, &common.ConnectionError{Op: "dial", Endpoint: endpoint, Err: err}
	}

	// Upgrade the connection with protocol-specific settings
	if err := connector.UpgradeConnection(netConn, config); err != nil {
		netConn.Close()
		return nil, &common.ConnectionError{Op: "upgrade", Endpoint: endpoint, Err: err}
	}

	c := &Conn{
		conn:         netConn,
		endpoint:     endpoint,
		timeout:      time.Duration(config.TimeoutSecond) * time.Second,
		maxFrameSize: config.Transport.MaxFrameSize,
	}

	if err := c.negotiate(protocol); err != nil {
		netConn.Close()
		c.closed = true
		return nil, &common.ConnectionError{Op: "handshake", Endpoint: endpoint, Err: err}
	}

	Logger.Debugf("Connected to %s using protocol %s", endpoint, protocol)
	return c, nil
}

// negotiate writes the protocol tag and expects the two byte acknowledgement
func (c *Conn) negotiate(protocol string) error {
	c.setDeadline()

	if _, err := io.WriteString(c.conn, protocol); err != nil {
		return err
	}

	ack := make([]byte, len(protocolAck))
	if _, err := io.ReadFull(c.conn, ack); err != nil {
		return closedOr(err)
	}
	if string(ack) != protocolAck {
		return fmt.Errorf("%w: tag %q answered with %q", common.ErrProtocolRejected, protocol, ack)
	}
	return nil
}

// WriteFrame sends payload prefixed with its length and counts the request.
// An oversized payload is rejected before anything is written and leaves the
// connection usable, so that error is not a *common.ConnectionError.
func (c *Conn) WriteFrame(payload []byte) error {
	if c.closed {
		return &common.ConnectionError{Op: "write", Endpoint: c.endpoint, Err: common.ErrConnectionClosed}
	}
	if err := checkFrameSize(int64(len(payload)), c.maxFrameSize); err != nil {
		return err
	}

	c.setDeadline()
	if err := writeFrame(c.conn, payload, c.maxFrameSize); err != nil {
		return &common.ConnectionError{Op: "write", Endpoint: c.endpoint, Err: err}
	}
	c.requestCount++
	return nil
}

// ReadFrame reads the next length prefixed payload. A frame announced above
// the configured maximum is a *common.ConnectionError wrapping common.ErrFrameTooLarge.
func (c *Conn) ReadFrame() ([]byte, error) {
	if c.closed {
		return nil, &common.ConnectionError{Op: "read", Endpoint: c.endpoint, Err: common.ErrConnectionClosed}
	}

	c.setDeadline()
	data, err := readFrame(c.conn, c.maxFrameSize)
	if err != nil {
		return nil, &common.ConnectionError{Op: "read", Endpoint: c.endpoint, Err: err}
	}
	return data, nil
}

// Exchange sends one request payload and waits for its response payload
func (c *Conn) Exchange(payload []byte) ([]byte, error) {
	if err := c.WriteFrame(payload); err != nil {
		return nil, err
	}
	return c.ReadFrame()
}

// RequestCount returns the number of frames written on this connection
func (c *Conn) RequestCount() int {
	return c.requestCount
}

// Endpoint returns the address this connection was opened to
func (c *Conn) Endpoint() string {
	return c.endpoint
}

// Closed reports whether Close was called
func (c *Conn) Closed() bool {
	return c.closed
}

// Close closes the socket. Calling Close more than once is a no-op.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	Logger.Debugf("Closing connection to %s after %d requests", c.endpoint, c.requestCount)
	return c.conn.Close()
}

// setDeadline applies the configured timeout to the next read or write
func (c *Conn) setDeadline() {
	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
}
