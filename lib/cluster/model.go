package cluster

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidStore is returned if a store definition violates its quorum settings
	ErrInvalidStore = errors.New("invalid store definition")
	// ErrStoreNotFound is returned if the requested store is not defined
	ErrStoreNotFound = errors.New("store not found")
)

// --------------------------------------------------------------------------
// Node
// --------------------------------------------------------------------------

// Node is one server of the cluster as described by cluster.xml
type Node struct {
	ID          int32
	Host        string
	HTTPPort    int
	SocketPort  int
	Partitions  []int
	Available   bool
	LastContact time.Time
}

// SocketAddress returns the host:port of the binary protocol endpoint
func (n Node) SocketAddress() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.SocketPort))
}

// --------------------------------------------------------------------------
// Store Descriptor
// --------------------------------------------------------------------------

// SerializerSpec names the serializer of a key or value and its optional schema
type SerializerSpec struct {
	Type       string
	SchemaInfo string
}

// StoreDescriptor is the definition of one store as described by stores.xml.
// PreferredReads and PreferredWrites are 0 if they are not defined.
type StoreDescriptor struct {
	Name              string
	Persistence       string
	Routing           string
	RoutingStrategy   string
	ReplicationFactor int
	RequiredReads     int
	PreferredReads    int
	RequiredWrites    int
	PreferredWrites   int
	KeySerializer     SerializerSpec
	ValueSerializer   SerializerSpec
}

// Validate checks the quorum settings of the store
func (s StoreDescriptor) Validate() error {
	switch {
	case s.ReplicationFactor < 1:
		return fmt.Errorf("%w: store %q: replication factor must be at least 1", ErrInvalidStore, s.Name)
	case s.RequiredReads < 1 || s.RequiredReads > s.ReplicationFactor:
		return fmt.Errorf("%w: store %q: required reads %d not in [1, %d]", ErrInvalidStore, s.Name, s.RequiredReads, s.ReplicationFactor)
	case s.RequiredWrites < 1 || s.RequiredWrites > s.ReplicationFactor:
		return fmt.Errorf("%w: store %q: required writes %d not in [1, %d]", ErrInvalidStore, s.Name, s.RequiredWrites, s.ReplicationFactor)
	case s.PreferredReads != 0 && (s.PreferredReads < s.RequiredReads || s.PreferredReads > s.ReplicationFactor):
		return fmt.Errorf("%w: store %q: preferred reads %d not in [%d, %d]", ErrInvalidStore, s.Name, s.PreferredReads, s.RequiredReads, s.ReplicationFactor)
	case s.PreferredWrites != 0 && (s.PreferredWrites < s.RequiredWrites || s.PreferredWrites > s.ReplicationFactor):
		return fmt.Errorf("%w: store %q: preferred writes %d not in [%d, %d]", ErrInvalidStore, s.Name, s.PreferredWrites, s.RequiredWrites, s.ReplicationFactor)
	}
	return nil
}

// FindStore returns the descriptor named name
func FindStore(stores []StoreDescriptor, name string) (StoreDescriptor, error) {
	for _, s := range stores {
		if s.Name == name {
			return s, nil
		}
	}
	return StoreDescriptor{}, fmt.Errorf("%w: %q", ErrStoreNotFound, name)
}

// --------------------------------------------------------------------------
// Topology
// --------------------------------------------------------------------------

// Topology is the result of a bootstrap: the nodes in cluster.xml order and the
// descriptor of the accessed store. It is not modified after creation.
type Topology struct {
	Nodes []Node
	Store StoreDescriptor
}

// Node returns the node with the given id
func (t *Topology) Node(id int32) (Node, bool) {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// String returns a formatted string representation of the topology
func (t *Topology) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Nodes")
	for _, n := range t.Nodes {
		partitions := make([]string, 0, len(n.Partitions))
		for _, p := range n.Partitions {
			partitions = append(partitions, strconv.Itoa(p))
		}
		addField(fmt.Sprintf("Node %d", n.ID), fmt.Sprintf("%s (http %d) partitions [%s]",
			n.SocketAddress(), n.HTTPPort, strings.Join(partitions, ", ")))
	}

	addSection("Store")
	addField("Name", t.Store.Name)
	addField("Persistence", t.Store.Persistence)
	addField("Routing", t.Store.Routing)
	addField("Routing Strategy", t.Store.RoutingStrategy)
	addField("Replication Factor", strconv.Itoa(t.Store.ReplicationFactor))
	addField("Required Reads", strconv.Itoa(t.Store.RequiredReads))
	addField("Preferred Reads", strconv.Itoa(t.Store.PreferredReads))
	addField("Required Writes", strconv.Itoa(t.Store.RequiredWrites))
	addField("Preferred Writes", strconv.Itoa(t.Store.PreferredWrites))
	addField("Key Serializer", t.Store.KeySerializer.Type)
	addField("Value Serializer", t.Store.ValueSerializer.Type)

	return sb.String()
}
