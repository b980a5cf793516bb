package cluster

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrMalformedMetadata is returned if cluster.xml or stores.xml can not be parsed
var ErrMalformedMetadata = errors.New("malformed metadata")

const defaultRoutingStrategy = "consistent-routing"

// --------------------------------------------------------------------------
// XML Documents
// --------------------------------------------------------------------------

type clusterXML struct {
	XMLName xml.Name    `xml:"cluster"`
	Name    string      `xml:"name"`
	Servers []serverXML `xml:"server"`
}

type serverXML struct {
	ID         *int32  `xml:"id"`
	Host       string  `xml:"host"`
	HTTPPort   *int    `xml:"http-port"`
	SocketPort *int    `xml:"socket-port"`
	Partitions *string `xml:"partitions"`
}

type storesXML struct {
	XMLName xml.Name   `xml:"stores"`
	Stores  []storeXML `xml:"store"`
}

type storeXML struct {
	Name              string         `xml:"name"`
	Persistence       string         `xml:"persistence"`
	Routing           string         `xml:"routing"`
	RoutingStrategy   string         `xml:"routing-strategy"`
	ReplicationFactor *int           `xml:"replication-factor"`
	RequiredReads     *int           `xml:"required-reads"`
	PreferredReads    *int           `xml:"preferred-reads"`
	RequiredWrites    *int           `xml:"required-writes"`
	PreferredWrites   *int           `xml:"preferred-writes"`
	KeySerializer     *serializerXML `xml:"key-serializer"`
	ValueSerializer   *serializerXML `xml:"value-serializer"`
}

type serializerXML struct {
	Type       string `xml:"type"`
	SchemaInfo string `xml:"schema-info"`
}

// --------------------------------------------------------------------------
// Parser
// --------------------------------------------------------------------------

// ParseClusterXML parses a cluster.xml document into nodes, keeping document order
func ParseClusterXML(data []byte) ([]Node, error) {
	var doc clusterXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: cluster.xml: %v", ErrMalformedMetadata, err)
	}

	nodes := make([]Node, 0, len(doc.Servers))
	for i, s := range doc.Servers {
		if s.ID == nil || s.Host == "" || s.HTTPPort == nil || s.SocketPort == nil || s.Partitions == nil {
			return nil, fmt.Errorf("%w: cluster.xml: server %d is missing a required element", ErrMalformedMetadata, i)
		}
		partitions, err := parsePartitions(*s.Partitions)
		if err != nil {
			return nil, fmt.Errorf("%w: cluster.xml: server %d: %v", ErrMalformedMetadata, *s.ID, err)
		}
		nodes = append(nodes, Node{
			ID:         *s.ID,
			Host:       strings.TrimSpace(s.Host),
			HTTPPort:   *s.HTTPPort,
			SocketPort: *s.SocketPort,
			Partitions: partitions,
			Available:  true,
		})
	}

	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: cluster.xml defines no servers", ErrMalformedMetadata)
	}
	return nodes, nil
}

// ParseStoresXML parses a stores.xml document into store descriptors
func ParseStoresXML(data []byte) ([]StoreDescriptor, error) {
	var doc storesXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: stores.xml: %v", ErrMalformedMetadata, err)
	}

	stores := make([]StoreDescriptor, 0, len(doc.Stores))
	for i, s := range doc.Stores {
		name := strings.TrimSpace(s.Name)
		if name == "" || s.ReplicationFactor == nil || s.RequiredReads == nil || s.RequiredWrites == nil ||
			s.KeySerializer == nil || s.ValueSerializer == nil {
			return nil, fmt.Errorf("%w: stores.xml: store %d is missing a required element", ErrMalformedMetadata, i)
		}

		routingStrategy := strings.TrimSpace(s.RoutingStrategy)
		if routingStrategy == "" {
			routingStrategy = defaultRoutingStrategy
		}

		stores = append(stores, StoreDescriptor{
			Name:              name,
			Persistence:       strings.TrimSpace(s.Persistence),
			Routing:           strings.TrimSpace(s.Routing),
			RoutingStrategy:   routingStrategy,
			ReplicationFactor: *s.ReplicationFactor,
			RequiredReads:     *s.RequiredReads,
			PreferredReads:    intOrZero(s.PreferredReads),
			RequiredWrites:    *s.RequiredWrites,
			PreferredWrites:   intOrZero(s.PreferredWrites),
			KeySerializer:     s.KeySerializer.spec(),
			ValueSerializer:   s.ValueSerializer.spec(),
		})
	}
	return stores, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// parsePartitions parses a comma and/or whitespace separated list of partition ids
func parsePartitions(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	partitions := make([]int, 0, len(fields))
	for _, f := range fields {
		p, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid partition %q", f)
		}
		partitions = append(partitions, p)
	}
	return partitions, nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func (s *serializerXML) spec() SerializerSpec {
	return SerializerSpec{
		Type:       strings.TrimSpace(s.Type),
		SchemaInfo: strings.TrimSpace(s.SchemaInfo),
	}
}
