package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClusterXML = `<cluster>
  <name>mycluster</name>
  <server>
    <id>0</id>
    <host>localhost</host>
    <http-port>8081</http-port>
    <socket-port>6666</socket-port>
    <partitions>0, 1 2,3</partitions>
  </server>
  <server>
    <id>1</id>
    <host>node-b</host>
    <http-port>8082</http-port>
    <socket-port>6667</socket-port>
    <partitions>4</partitions>
  </server>
</cluster>`

const testStoresXML = `<stores>
  <store>
    <name>test</name>
    <persistence>bdb</persistence>
    <routing>client</routing>
    <replication-factor>2</replication-factor>
    <required-reads>1</required-reads>
    <preferred-reads>2</preferred-reads>
    <required-writes>1</required-writes>
    <key-serializer><type>string</type></key-serializer>
    <value-serializer><type>json</type><schema-info version="0">"string"</schema-info></value-serializer>
  </store>
  <store>
    <name>other</name>
    <persistence>memory</persistence>
    <routing>server</routing>
    <routing-strategy>zone-routing</routing-strategy>
    <replication-factor>1</replication-factor>
    <required-reads>1</required-reads>
    <required-writes>1</required-writes>
    <key-serializer><type>string</type></key-serializer>
    <value-serializer><type>string</type></value-serializer>
  </store>
</stores>`

func TestParseClusterXML(t *testing.T) {
	nodes, err := ParseClusterXML([]byte(testClusterXML))
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, int32(0), nodes[0].ID)
	assert.Equal(t, "localhost", nodes[0].Host)
	assert.Equal(t, 8081, nodes[0].HTTPPort)
	assert.Equal(t, 6666, nodes[0].SocketPort)
	assert.Equal(t, []int{0, 1, 2, 3}, nodes[0].Partitions)
	assert.True(t, nodes[0].Available)
	assert.Equal(t, "localhost:6666", nodes[0].SocketAddress())

	assert.Equal(t, int32(1), nodes[1].ID)
	assert.Equal(t, []int{4}, nodes[1].Partitions)
}

func TestParseClusterXMLErrors(t *testing.T) {
	testCases := map[string]string{
		"not xml":         "this is not xml",
		"no servers":      "<cluster><name>x</name></cluster>",
		"missing port":    "<cluster><server><id>0</id><host>h</host><http-port>1</http-port><partitions>0</partitions></server></cluster>",
		"bad partition":   "<cluster><server><id>0</id><host>h</host><http-port>1</http-port><socket-port>2</socket-port><partitions>a</partitions></server></cluster>",
		"wrong root name": "<stores></stores>",
	}

	for name, doc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseClusterXML([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedMetadata))
		})
	}
}

func TestParseStoresXML(t *testing.T) {
	stores, err := ParseStoresXML([]byte(testStoresXML))
	require.NoError(t, err)
	require.Len(t, stores, 2)

	s, err := FindStore(stores, "test")
	require.NoError(t, err)
	assert.Equal(t, "bdb", s.Persistence)
	assert.Equal(t, "client", s.Routing)
	assert.Equal(t, "consistent-routing", s.RoutingStrategy)
	assert.Equal(t, 2, s.ReplicationFactor)
	assert.Equal(t, 1, s.RequiredReads)
	assert.Equal(t, 2, s.PreferredReads)
	assert.Equal(t, 1, s.RequiredWrites)
	assert.Equal(t, 0, s.PreferredWrites)
	assert.Equal(t, SerializerSpec{Type: "string"}, s.KeySerializer)
	assert.Equal(t, SerializerSpec{Type: "json", SchemaInfo: `"string"`}, s.ValueSerializer)
	assert.NoError(t, s.Validate())

	other, err := FindStore(stores, "other")
	require.NoError(t, err)
	assert.Equal(t, "zone-routing", other.RoutingStrategy)

	_, err = FindStore(stores, "missing")
	assert.True(t, errors.Is(err, ErrStoreNotFound))
}

func TestParseStoresXMLErrors(t *testing.T) {
	_, err := ParseStoresXML([]byte("<stores><store><name>x</name></store></stores>"))
	assert.True(t, errors.Is(err, ErrMalformedMetadata))

	_, err = ParseStoresXML([]byte("<<<"))
	assert.True(t, errors.Is(err, ErrMalformedMetadata))
}

func TestStoreDescriptorValidate(t *testing.T) {
	valid := StoreDescriptor{Name: "s", ReplicationFactor: 3, RequiredReads: 2, RequiredWrites: 2}

	testCases := []struct {
		name   string
		modify func(s *StoreDescriptor)
		ok     bool
	}{
		{"valid", func(s *StoreDescriptor) {}, true},
		{"valid with preferred", func(s *StoreDescriptor) { s.PreferredReads = 3; s.PreferredWrites = 2 }, true},
		{"no replication", func(s *StoreDescriptor) { s.ReplicationFactor = 0 }, false},
		{"too many required reads", func(s *StoreDescriptor) { s.RequiredReads = 4 }, false},
		{"too many required writes", func(s *StoreDescriptor) { s.RequiredWrites = 4 }, false},
		{"preferred below required", func(s *StoreDescriptor) { s.PreferredReads = 1 }, false},
		{"preferred above replication", func(s *StoreDescriptor) { s.PreferredWrites = 5 }, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.modify(&s)
			err := s.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidStore))
			}
		})
	}
}
