package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/client"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/serializer"
	"github.com/ValentinKolb/vold/rpc/transport"
	"github.com/ValentinKolb/vold/rpc/transport/tcp"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the cluster connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "bootstrap-urls"
	cmd.PersistentFlags().String(key, "localhost:6666", WrapString("Comma-separated host:port socket endpoints used to fetch the cluster metadata"))

	key = "store"
	cmd.PersistentFlags().String(key, "test", WrapString("Name of the store to operate on"))

	key = "node-id"
	cmd.PersistentFlags().Int(key, common.NodeIDFromSession, WrapString("Node id written into vector clocks, -1 uses the id of the connected node"))

	key = "resolver"
	cmd.PersistentFlags().String(key, "none", WrapString("Conflict resolver for concurrent versions (none, dominance, timestamp)"))

	key = "key-serializer"
	cmd.PersistentFlags().String(key, "", WrapString("Overrides the key serializer of the store definition (string, json, identity)"))

	key = "value-serializer"
	cmd.PersistentFlags().String(key, "", WrapString("Overrides the value serializer of the store definition (string, json, identity)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, common.DefaultTimeoutSecond, WrapString("Timeout in seconds for connecting, reading and writing (0 disables it)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, common.DefaultLogLevel, WrapString("Log level (debug, info, warn, error)"))

	key = "transport-protocol"
	cmd.PersistentFlags().String(key, common.DefaultProtocol, WrapString("Protocol tag sent during the handshake"))

	key = "transport-reconnect-interval"
	cmd.PersistentFlags().Int(key, common.DefaultReconnectInterval, WrapString("Number of requests after which the client moves on to the next node"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "transport-max-frame-size"
	cmd.PersistentFlags().Int(key, common.DefaultMaxFrameSize>>10, WrapString("The largest frame accepted from a node (in KB, 0 disables the limit)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, 0 disables it)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time (in seconds, negative keeps the OS default)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("vold")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	var urls []string
	for _, url := range strings.Split(viper.GetString("bootstrap-urls"), ",") {
		if url = strings.TrimSpace(url); url != "" {
			urls = append(urls, url)
		}
	}

	conf := &common.ClientConfig{
		StoreName:        viper.GetString("store"),
		NodeID:           viper.GetInt("node-id"),
		ConflictResolver: viper.GetString("resolver"),
		KeySerializer:    viper.GetString("key-serializer"),
		ValueSerializer:  viper.GetString("value-serializer"),
		TimeoutSecond:    viper.GetInt("timeout"),
		LogLevel:         viper.GetString("log-level"),
		Transport: common.ClientTransportConfig{
			BootstrapURLs:     urls,
			Protocol:          viper.GetString("transport-protocol"),
			ReconnectInterval: viper.GetInt("transport-reconnect-interval"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
				MaxFrameSize:    viper.GetInt("transport-max-frame-size") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
				TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			},
		},
	}

	return conf
}

// GetSerializer creates the wire serializer for the configured protocol
func GetSerializer(config common.ClientConfig) (serializer.IRPCSerializer, error) {
	return serializer.ForProtocol(config.Transport.Protocol)
}

// GetTransport creates the connector used to reach the nodes
func GetTransport() transport.IClientConnector {
	return tcp.NewTCPConnector()
}

// GetResolver creates the configured conflict resolver (nil for "none")
func GetResolver(config common.ClientConfig) (versioning.IConflictResolver, error) {
	return versioning.NewResolverRegistry().Get(config.ConflictResolver)
}

// NewStoreClient creates a store client from the flags and environment of cmd
func NewStoreClient(cmd *cobra.Command) (*client.StoreClient, *common.ClientConfig, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, nil, err
	}

	config := GetClientConfig()
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}
	if err := common.InitLoggers(*config); err != nil {
		return nil, nil, err
	}

	s, err := GetSerializer(*config)
	if err != nil {
		return nil, nil, err
	}
	r, err := GetResolver(*config)
	if err != nil {
		return nil, nil, err
	}

	c, err := client.NewStoreClient(*config, GetTransport(), s, r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, config, nil
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
