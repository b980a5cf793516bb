package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default values of the client configuration
const (
	DefaultProtocol          = "pb0"
	DefaultReconnectInterval = 500
	DefaultTimeoutSecond     = 10
	DefaultLogLevel          = "info"
	DefaultMaxFrameSize      = 64 << 20

	// NodeIDFromSession makes the client advance clocks with the id of the node
	// it is currently connected to
	NodeIDFromSession = -1
)

// --------------------------------------------------------------------------
// Client configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings (in bytes, 0 keeps the OS default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
	// MaxFrameSize is the largest payload accepted in a single frame (0 disables the limit)
	MaxFrameSize int
}

// TCPConf holds TCP specific socket settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int // 0 disables keep-alive tuning
	TCPLingerSec    int // negative keeps the OS default
}

// ClientTransportConfig holds everything needed to reach the cluster
type ClientTransportConfig struct {
	// BootstrapURLs are host:port socket endpoints used to fetch the cluster metadata
	BootstrapURLs []string
	// Protocol is the tag sent during the handshake
	Protocol string
	// ReconnectInterval is the number of requests after which the session
	// proactively moves to the next node
	ReconnectInterval int

	SocketConf
	TCPConf
}

// ClientConfig is the configuration of a store client
type ClientConfig struct {
	// StoreName is the store all operations of the client work on
	StoreName string
	// NodeID is used to advance vector clocks on writes. NodeIDFromSession uses
	// the id of the connected node.
	NodeID int
	// ConflictResolver is the registered name of the resolver ("none", "dominance", "timestamp")
	ConflictResolver string
	// KeySerializer and ValueSerializer override the serializer types of the store definition
	KeySerializer   string
	ValueSerializer string

	TimeoutSecond int
	LogLevel      string

	Transport ClientTransportConfig
}

// DefaultClientConfig returns a configuration with all defaults set
func DefaultClientConfig(storeName string, bootstrapURLs ...string) ClientConfig {
	return ClientConfig{
		StoreName:        storeName,
		NodeID:           NodeIDFromSession,
		ConflictResolver: "none",
		TimeoutSecond:    DefaultTimeoutSecond,
		LogLevel:         DefaultLogLevel,
		Transport: ClientTransportConfig{
			BootstrapURLs:     bootstrapURLs,
			Protocol:          DefaultProtocol,
			ReconnectInterval: DefaultReconnectInterval,
			SocketConf: SocketConf{
				MaxFrameSize: DefaultMaxFrameSize,
			},
			TCPConf: TCPConf{
				TCPNoDelay:   true,
				TCPLingerSec: -1,
			},
		},
	}
}

// Validate checks the configuration and returns a *ConfigurationError
func (c *ClientConfig) Validate() error {
	switch {
	case c.StoreName == "":
		return &ConfigurationError{Reason: "no store name provided"}
	case c.StoreName == MetadataStore:
		return &ConfigurationError{Reason: fmt.Sprintf("store %q is reserved", MetadataStore)}
	case len(c.Transport.BootstrapURLs) == 0:
		return &ConfigurationError{Reason: "no bootstrap urls provided"}
	case len(c.Transport.Protocol) != 3:
		return &ConfigurationError{Reason: fmt.Sprintf("protocol tag %q must be 3 characters", c.Transport.Protocol)}
	case c.Transport.ReconnectInterval < 1:
		return &ConfigurationError{Reason: "reconnect interval must be at least 1"}
	case c.TimeoutSecond < 0:
		return &ConfigurationError{Reason: "timeout must not be negative"}
	case c.NodeID < NodeIDFromSession, c.NodeID > math.MaxInt32:
		return &ConfigurationError{Reason: fmt.Sprintf("invalid node id %d", c.NodeID)}
	case c.Transport.MaxFrameSize < 0:
		return &ConfigurationError{Reason: "max frame size must not be negative"}
	}
	for _, url := range c.Transport.BootstrapURLs {
		if strings.TrimSpace(url) == "" {
			return &ConfigurationError{Reason: "empty bootstrap url"}
		}
	}
	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return &ConfigurationError{Reason: "invalid log level", Err: err}
	}
	return nil
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	nodeID := strconv.Itoa(c.NodeID)
	if c.NodeID == NodeIDFromSession {
		nodeID = "connected node"
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Store", c.StoreName)
	addField("Node ID", nodeID)
	addField("Conflict Resolver", c.ConflictResolver)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Log Level", c.LogLevel)

	// Transport
	addSection("Transport")
	addField("Protocol", c.Transport.Protocol)
	addField("Reconnect Interval", fmt.Sprintf("%d requests", c.Transport.ReconnectInterval))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.Transport.MaxFrameSize))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))

	// Endpoints
	addSection("Bootstrap URLs")
	for i, endpoint := range c.Transport.BootstrapURLs {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
