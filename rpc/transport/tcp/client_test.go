package tcp

import (
	"net"
	"testing"

	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndUpgrade(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	config := common.DefaultClientConfig("test", listener.Addr().String())
	config.Transport.TCPKeepAliveSec = 30
	config.Transport.ReadBufferSize = 64 * 1024
	config.Transport.WriteBufferSize = 64 * 1024

	connector := NewTCPConnector()
	assert.Equal(t, "tcp", connector.GetName())

	conn, err := connector.Connect(listener.Addr().String(), config)
	require.NoError(t, err)
	defer conn.Close()

	assert.NoError(t, connector.UpgradeConnection(conn, config))
	(<-accepted).Close()
}

func TestConnectRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	listener.Close()

	config := common.DefaultClientConfig("test", addr)
	config.TimeoutSecond = 1

	_, err = NewTCPConnector().Connect(addr, config)
	assert.Error(t, err)
}

func TestUpgradeIgnoresNonTCP(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	assert.NoError(t, NewTCPConnector().UpgradeConnection(client, common.DefaultClientConfig("test", "x:1")))
}
