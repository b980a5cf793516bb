package socktest

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/vold/lib/cluster"
)

// DefaultStoresXML defines the store "test" with string keys and values
const DefaultStoresXML = `<stores>
  <store>
    <name>test</name>
    <persistence>memory</persistence>
    <routing>client</routing>
    <replication-factor>1</replication-factor>
    <required-reads>1</required-reads>
    <required-writes>1</required-writes>
    <key-serializer><type>string</type></key-serializer>
    <value-serializer><type>string</type></value-serializer>
  </store>
</stores>`

// Cluster is a set of fake nodes sharing one MemoryStore
type Cluster struct {
	Nodes []*Node
	Store *MemoryStore
}

// StartCluster starts n nodes with ids 0..n-1 and publishes a matching
// cluster.xml together with storesXML in the metadata store. The user stores
// named in storeNames are created empty.
func StartCluster(n int, storesXML string, storeNames ...string) (*Cluster, error) {
	c := &Cluster{Store: NewMemoryStore(storeNames...)}
	for i := 0; i < n; i++ {
		node, err := StartNode(int32(i), c.Store)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.Nodes = append(c.Nodes, node)
	}
	c.Store.SetMetadata(c.ClusterXML(), storesXML)
	return c, nil
}

// ClusterXML renders the cluster.xml describing the running nodes
func (c *Cluster) ClusterXML() string {
	var sb strings.Builder
	sb.WriteString("<cluster>\n  <name>socktest</name>\n")
	for _, n := range c.Nodes {
		sb.WriteString(fmt.Sprintf(`  <server>
    <id>%d</id>
    <host>127.0.0.1</host>
    <http-port>0</http-port>
    <socket-port>%d</socket-port>
    <partitions>%d</partitions>
  </server>
`, n.ID, n.Port(), n.ID))
	}
	sb.WriteString("</cluster>\n")
	return sb.String()
}

// Addrs returns the endpoints of all nodes
func (c *Cluster) Addrs() []string {
	addrs := make([]string, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		addrs = append(addrs, n.Addr())
	}
	return addrs
}

// ClusterNodes returns the nodes as the client sees them after a bootstrap
func (c *Cluster) ClusterNodes() []cluster.Node {
	nodes := make([]cluster.Node, 0, len(c.Nodes))
	for _, n := range c.Nodes {
		nodes = append(nodes, cluster.Node{
			ID:         n.ID,
			Host:       "127.0.0.1",
			SocketPort: n.Port(),
			Partitions: []int{int(n.ID)},
			Available:  true,
		})
	}
	return nodes
}

// Close stops all nodes
func (c *Cluster) Close() {
	for _, n := range c.Nodes {
		n.Stop()
	}
}
