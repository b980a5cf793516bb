package client

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/serializer"
	"github.com/ValentinKolb/vold/rpc/transport/socktest"
	"github.com/ValentinKolb/vold/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonStoresXML = `<stores>
  <store>
    <name>test</name>
    <persistence>memory</persistence>
    <routing>client</routing>
    <replication-factor>2</replication-factor>
    <required-reads>1</required-reads>
    <required-writes>1</required-writes>
    <key-serializer><type>string</type></key-serializer>
    <value-serializer><type>json</type></value-serializer>
  </store>
</stores>`

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

func startCluster(t *testing.T, n int, storesXML string) *socktest.Cluster {
	t.Helper()
	c, err := socktest.StartCluster(n, storesXML, "test")
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func testConfig(c *socktest.Cluster) common.ClientConfig {
	config := common.DefaultClientConfig("test", c.Addrs()...)
	config.TimeoutSecond = 2
	config.NodeID = 5
	return config
}

func newClient(t *testing.T, config common.ClientConfig, resolver versioning.IConflictResolver) *StoreClient {
	t.Helper()
	client, err := NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), resolver)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func clock(ts int64, entries ...versioning.ClockEntry) versioning.VectorClock {
	return versioning.VectorClock{Entries: entries, Timestamp: ts}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestPutGetDelete(t *testing.T) {
	c := startCluster(t, 3, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	// a new key starts with version 1 of the client node
	written, err := client.Put("hello", "world", nil)
	require.NoError(t, err)
	assert.Equal(t, []versioning.ClockEntry{{NodeID: 5, Version: 1}}, written.Entries)

	versions, err := client.Get("hello")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "world", versions[0].Value)
	assert.Equal(t, versioning.Equal, versioning.Compare(written, versions[0].Clock))

	// the second write is based on the stored clock
	written, err = client.Put("hello", "again", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), written.Version(5))

	versions, err = client.Get("hello")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "again", versions[0].Value)

	deleted, err := client.Delete("hello", nil)
	require.NoError(t, err)
	assert.True(t, deleted)

	versions, err = client.Get("hello")
	require.NoError(t, err)
	assert.Empty(t, versions)

	// nothing left to delete
	deleted, err = client.Delete("hello", nil)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetMissingKey(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	versions, err := client.Get("missing")
	require.NoError(t, err)
	assert.NotNil(t, versions)
	assert.Empty(t, versions)

	clocks, err := client.GetVersions("missing")
	require.NoError(t, err)
	assert.Empty(t, clocks)
}

func TestConcurrentVersions(t *testing.T) {
	first := clock(100, versioning.ClockEntry{NodeID: 1, Version: 1})
	second := clock(200, versioning.ClockEntry{NodeID: 2, Version: 1})

	tests := []struct {
		name     string
		resolver versioning.IConflictResolver
		expected []string
	}{
		{name: "no resolver", resolver: nil, expected: []string{"a", "b"}},
		{name: "dominance", resolver: versioning.NewDominanceResolver(), expected: []string{"a", "b"}},
		{name: "timestamp", resolver: versioning.NewTimestampResolver(), expected: []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := startCluster(t, 1, socktest.DefaultStoresXML)
			c.Store.Seed("test", []byte("k"), []byte("a"), first)
			c.Store.Seed("test", []byte("k"), []byte("b"), second)

			client := newClient(t, testConfig(c), tt.resolver)
			versions, err := client.Get("k")
			require.NoError(t, err)

			values := make([]string, 0, len(versions))
			for _, v := range versions {
				values = append(values, v.Value.(string))
			}
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestPutSupersedesSiblings(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	c.Store.Seed("test", []byte("k"), []byte("a"), clock(1, versioning.ClockEntry{NodeID: 1, Version: 1}))
	c.Store.Seed("test", []byte("k"), []byte("b"), clock(2, versioning.ClockEntry{NodeID: 2, Version: 3}))

	client := newClient(t, testConfig(c), nil)

	written, err := client.Put("k", "merged", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), written.Version(1))
	assert.Equal(t, uint64(3), written.Version(2))
	assert.Equal(t, uint64(1), written.Version(5))

	versions, err := client.Get("k")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "merged", versions[0].Value)
}

func TestPutObsoleteClock(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	_, err := client.Put("k", "v1", nil)
	require.NoError(t, err)

	// an empty base clock advances to the version that is already stored
	_, err = client.Put("k", "v2", &versioning.VectorClock{})
	var protoErr *common.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, socktest.ErrCodeObsoleteVersion, protoErr.Code)

	// bootstrap (2), first put (2), second put (1)
	assert.Equal(t, int64(5), c.Nodes[0].Requests())
}

func TestPutWithTimestamp(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	written, err := client.PutWithTimestamp("k", "v", nil, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), written.Timestamp)

	clocks, err := client.GetVersions("k")
	require.NoError(t, err)
	require.Len(t, clocks, 1)
	assert.Equal(t, int64(42), clocks[0].Timestamp)
}

func TestPutInvalidClock(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)
	bootstrapRequests := c.Nodes[0].Requests()

	broken := clock(1, versioning.ClockEntry{NodeID: 1, Version: 1}, versioning.ClockEntry{NodeID: 1, Version: 2})
	_, err := client.Put("k", "v", &broken)
	assert.ErrorIs(t, err, versioning.ErrDuplicateNode)

	_, err = client.PutWithTimestamp("k", "v", &broken, 42)
	assert.ErrorIs(t, err, versioning.ErrDuplicateNode)

	_, err = client.Delete("k", &broken)
	assert.ErrorIs(t, err, versioning.ErrDuplicateNode)

	// nothing was sent, so no node is reported as seen
	assert.Equal(t, bootstrapRequests, c.Nodes[0].Requests())
	assert.Empty(t, client.NodeStatus())
}

func TestGetAll(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	c.Store.Seed("test", []byte("a"), []byte("1"), clock(10, versioning.ClockEntry{NodeID: 1, Version: 1}))
	c.Store.Seed("test", []byte("b"), []byte("old"), clock(100, versioning.ClockEntry{NodeID: 1, Version: 1}))
	c.Store.Seed("test", []byte("b"), []byte("new"), clock(200, versioning.ClockEntry{NodeID: 2, Version: 1}))

	t.Run("unresolved", func(t *testing.T) {
		client := newClient(t, testConfig(c), nil)
		before := c.Nodes[0].Requests()

		result, err := client.GetAll("a", "missing", "b", "a")
		require.NoError(t, err)
		assert.Equal(t, before+1, c.Nodes[0].Requests())

		require.Len(t, result, 2)
		assert.NotContains(t, result, "missing")
		require.Len(t, result["a"], 1)
		assert.Equal(t, "1", result["a"][0].Value)
		assert.Len(t, result["b"], 2)
	})

	t.Run("resolved per key", func(t *testing.T) {
		client := newClient(t, testConfig(c), versioning.NewTimestampResolver())

		result, err := client.GetAll("a", "b", "missing")
		require.NoError(t, err)
		require.Len(t, result, 2)
		require.Len(t, result["a"], 1)
		require.Len(t, result["b"], 1)
		assert.Equal(t, "new", result["b"][0].Value)
	})

	t.Run("no keys", func(t *testing.T) {
		client := newClient(t, testConfig(c), nil)
		before := c.Nodes[0].Requests()

		result, err := client.GetAll()
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Equal(t, before, c.Nodes[0].Requests())
	})
}

func TestGetAllByteKeys(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	c.Store.Seed("test", []byte("a"), []byte("1"), clock(10, versioning.ClockEntry{NodeID: 1, Version: 1}))

	config := testConfig(c)
	config.KeySerializer = "identity"
	client := newClient(t, config, nil)

	result, err := client.GetAll([]byte("a"), []byte("b"))
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Contains(t, result, "a")
}

func TestAdd(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	written, err := client.Add("k", "first")
	require.NoError(t, err)
	assert.Equal(t, []versioning.ClockEntry{{NodeID: 5, Version: 1}}, written.Entries)

	// the key exists now, the value stays untouched
	_, err = client.Add("k", "second")
	assert.ErrorIs(t, err, common.ErrKeyExists)

	versions, err := client.Get("k")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "first", versions[0].Value)

	// a key stored by another writer counts as well
	c.Store.Seed("test", []byte("other"), []byte("x"), clock(1, versioning.ClockEntry{NodeID: 2, Version: 4}))
	_, err = client.Add("other", "y")
	assert.ErrorIs(t, err, common.ErrKeyExists)
	assert.Len(t, c.Store.Versions("test", []byte("other")), 1)
}

func TestNodeIDFromSession(t *testing.T) {
	c := startCluster(t, 2, socktest.DefaultStoresXML)
	config := testConfig(c)
	config.NodeID = common.NodeIDFromSession
	client := newClient(t, config, nil)

	written, err := client.Put("k", "v", nil)
	require.NoError(t, err)
	require.Len(t, written.Entries, 1)
	assert.Equal(t, client.CurrentNode().ID, written.Entries[0].NodeID)
}

func TestFailover(t *testing.T) {
	c := startCluster(t, 3, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	_, err := client.Put("k", "v", nil)
	require.NoError(t, err)

	// the node in use goes away, the next request fails over
	current := client.CurrentNode().ID
	require.NoError(t, c.Nodes[current].Stop())

	versions, err := client.Get("k")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.NotEqual(t, current, client.CurrentNode().ID)

	c.Close()
	_, err = client.Get("k")
	assert.ErrorIs(t, err, common.ErrAllNodesDown)
}

func TestJSONValues(t *testing.T) {
	c := startCluster(t, 2, jsonStoresXML)
	client := newClient(t, testConfig(c), nil)

	_, err := client.Put("user", map[string]any{"name": "ada", "age": 36}, nil)
	require.NoError(t, err)

	versions, err := client.Get("user")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, map[string]any{"name": "ada", "age": float64(36)}, versions[0].Value)
}

func TestSerializerOverride(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)
	config := testConfig(c)
	config.ValueSerializer = "identity"
	client := newClient(t, config, nil)

	_, err := client.Put("k", []byte{1, 2, 3}, nil)
	require.NoError(t, err)

	versions, err := client.Get("k")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, []byte{1, 2, 3}, versions[0].Value)

	config.ValueSerializer = "avro"
	_, err = NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), nil)
	var configErr *common.ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}

func TestNewStoreClientErrors(t *testing.T) {
	c := startCluster(t, 1, socktest.DefaultStoresXML)

	t.Run("invalid config", func(t *testing.T) {
		config := testConfig(c)
		config.StoreName = ""
		_, err := NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), nil)
		var configErr *common.ConfigurationError
		assert.ErrorAs(t, err, &configErr)
	})

	t.Run("protocol mismatch", func(t *testing.T) {
		config := testConfig(c)
		config.Transport.Protocol = "vp3"
		_, err := NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), nil)
		var configErr *common.ConfigurationError
		assert.ErrorAs(t, err, &configErr)
	})

	t.Run("unknown store", func(t *testing.T) {
		config := testConfig(c)
		config.StoreName = "missing"
		_, err := NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), nil)
		var configErr *common.ConfigurationError
		assert.ErrorAs(t, err, &configErr)
	})

	t.Run("bootstrap fails", func(t *testing.T) {
		down := startCluster(t, 1, socktest.DefaultStoresXML)
		config := testConfig(down)
		down.Close()

		_, err := NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), nil)
		assert.ErrorIs(t, err, common.ErrAllBootstrapsFailed)
	})
}

func TestTopologyAndMetrics(t *testing.T) {
	c := startCluster(t, 2, socktest.DefaultStoresXML)
	client := newClient(t, testConfig(c), nil)

	topology := client.Topology()
	assert.Len(t, topology.Nodes, 2)
	assert.Equal(t, "test", topology.Store.Name)

	_, err := client.Get("k")
	require.NoError(t, err)

	var buf bytes.Buffer
	client.WriteMetrics(&buf)
	assert.Contains(t, buf.String(), "vold_session_requests_total")
	assert.Len(t, client.NodeStatus(), 2)
}
