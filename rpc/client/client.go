package client

import (
	"fmt"
	"io"
	"reflect"

	"github.com/ValentinKolb/vold/lib/cluster"
	"github.com/ValentinKolb/vold/lib/serialization"
	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/bootstrap"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/serializer"
	"github.com/ValentinKolb/vold/rpc/session"
	"github.com/ValentinKolb/vold/rpc/transport"
	"github.com/ValentinKolb/vold/rpc/transport/base"
)

// StoreClient reads and writes the versioned values of one store. Every
// operation runs through the session, so it is sent to a single node and fails
// over to the next node on connection errors.
type StoreClient struct {
	config   common.ClientConfig
	codec    serializer.IRPCSerializer
	resolver versioning.IConflictResolver

	topology        *cluster.Topology
	keySerializer   serialization.ISerializer
	valueSerializer serialization.ISerializer

	session *session.Manager
}

// NewStoreClient bootstraps the cluster metadata and creates a client for
// config.StoreName. resolver may be nil, in which case concurrent versions are
// returned to the caller unresolved.
func NewStoreClient(
	config common.ClientConfig,
	connector transport.IClientConnector,
	codec serializer.IRPCSerializer,
	resolver versioning.IConflictResolver,
) (*StoreClient, error) {

	if err := config.Validate(); err != nil {
		return nil, err
	}
	if codec.Protocol() != config.Transport.Protocol {
		return nil, &common.ConfigurationError{
			Reason: fmt.Sprintf("serializer speaks %q but protocol %q is configured", codec.Protocol(), config.Transport.Protocol),
		}
	}

	// Fetch the topology, this fails if no endpoint delivers the metadata
	topology, err := bootstrap.New(connector, codec, config).Bootstrap(config.Transport.BootstrapURLs, config.StoreName)
	if err != nil {
		return nil, err
	}

	keySerializer, err := buildSerializer(topology.Store.KeySerializer, config.KeySerializer)
	if err != nil {
		return nil, err
	}
	valueSerializer, err := buildSerializer(topology.Store.ValueSerializer, config.ValueSerializer)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(connector, config, topology.Nodes)
	if err != nil {
		return nil, err
	}

	Logger.Infof("Created client for store %q on %d nodes", config.StoreName, len(topology.Nodes))

	return &StoreClient{
		config:          config,
		codec:           codec,
		resolver:        resolver,
		topology:        topology,
		keySerializer:   keySerializer,
		valueSerializer: valueSerializer,
		session:         sess,
	}, nil
}

// --------------------------------------------------------------------------
// Store Operations
// --------------------------------------------------------------------------

// Get returns all versions of key. A key without a value returns an empty
// list. If a resolver is configured and more than one version exists, the
// result of the resolver is returned instead.
func (c *StoreClient) Get(key any) ([]versioning.Versioned, error) {
	keyBytes, err := c.keySerializer.Serialize(key)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize key: %w", err)
	}

	var raw []common.Versioned
	err = c.session.Execute(func(conn *base.Conn, _ cluster.Node) error {
		resp, err := invokeRequest(conn, common.NewGetRequest(c.config.StoreName, keyBytes, true), c.codec)
		if err != nil {
			return err
		}
		raw = resp.Versioned
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c.resolve(raw)
}

// GetAll fetches several keys with a single request. The result holds the
// versions of every key that has a value, keys without a value are left out.
// The resolver is applied per key. Result keys are the keys passed in, []byte
// keys are returned as string since a slice can not be a map key.
func (c *StoreClient) GetAll(keys ...any) (map[any][]versioning.Versioned, error) {
	result := make(map[any][]versioning.Versioned, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	// the node answers with serialized keys, they are mapped back to the caller's keys
	requested := make(map[string]any, len(keys))
	keysBytes := make([][]byte, 0, len(keys))
	for _, key := range keys {
		keyBytes, err := c.keySerializer.Serialize(key)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize key: %w", err)
		}
		resultKey, err := mapKey(key)
		if err != nil {
			return nil, err
		}
		if _, ok := requested[string(keyBytes)]; ok {
			continue
		}
		requested[string(keyBytes)] = resultKey
		keysBytes = append(keysBytes, keyBytes)
	}

	var keyed []common.KeyedVersions
	err := c.session.Execute(func(conn *base.Conn, _ cluster.Node) error {
		resp, err := invokeRequest(conn, common.NewGetAllRequest(c.config.StoreName, keysBytes, true), c.codec)
		if err != nil {
			return err
		}
		keyed = resp.Keyed
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, kv := range keyed {
		key, ok := requested[string(kv.Key)]
		if !ok {
			Logger.Warningf("Ignoring key %x that was not requested", kv.Key)
			continue
		}
		if len(kv.Versions) == 0 {
			continue
		}
		versions, err := c.resolve(kv.Versions)
		if err != nil {
			return nil, err
		}
		result[key] = versions
	}
	return result, nil
}

// GetVersions returns the clocks of all versions of key without their values
func (c *StoreClient) GetVersions(key any) ([]versioning.VectorClock, error) {
	keyBytes, err := c.keySerializer.Serialize(key)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize key: %w", err)
	}
	return c.versions(keyBytes)
}

// Put stores value under key and returns the clock it was written with.
//
// If clock is nil the current versions of the key are fetched and combined
// into the base clock (an empty clock for a new key). The base clock is then
// advanced for the node id of the client, or for the connected node if the
// client has none. A base clock the node considers obsolete is reported as
// *common.ProtocolError.
func (c *StoreClient) Put(key, value any, clock *versioning.VectorClock) (versioning.VectorClock, error) {
	keyBytes, err := c.keySerializer.Serialize(key)
	if err != nil {
		return versioning.VectorClock{}, fmt.Errorf("failed to serialize key: %w", err)
	}
	return c.put(keyBytes, value, clock, nil)
}

// PutWithTimestamp works like Put, but the written clock carries
// timestampMillis instead of the current time. It is used to write a value
// with an explicit origin or expiry time.
func (c *StoreClient) PutWithTimestamp(key, value any, clock *versioning.VectorClock, timestampMillis int64) (versioning.VectorClock, error) {
	keyBytes, err := c.keySerializer.Serialize(key)
	if err != nil {
		return versioning.VectorClock{}, fmt.Errorf("failed to serialize key: %w", err)
	}
	return c.put(keyBytes, value, clock, &timestampMillis)
}

// Add stores value under key only if the key has no value yet. It fails with
// common.ErrKeyExists if the node reports any version of key. The check and
// the write are two requests, a concurrent writer can still add a sibling.
func (c *StoreClient) Add(key, value any) (versioning.VectorClock, error) {
	keyBytes, err := c.keySerializer.Serialize(key)
	if err != nil {
		return versioning.VectorClock{}, fmt.Errorf("failed to serialize key: %w", err)
	}

	current, err := c.versions(keyBytes)
	if err != nil {
		return versioning.VectorClock{}, err
	}
	if len(current) > 0 {
		return versioning.VectorClock{}, fmt.Errorf("%w: %d versions stored", common.ErrKeyExists, len(current))
	}

	return c.put(keyBytes, value, &versioning.VectorClock{}, nil)
}

// put implements Put, PutWithTimestamp and Add
func (c *StoreClient) put(keyBytes []byte, value any, clock *versioning.VectorClock, timestampMillis *int64) (versioning.VectorClock, error) {
	valueBytes, err := c.valueSerializer.Serialize(value)
	if err != nil {
		return versioning.VectorClock{}, fmt.Errorf("failed to serialize value: %w", err)
	}

	var baseClock versioning.VectorClock
	if clock != nil {
		baseClock = clock.Clone()
	} else {
		current, err := c.versions(keyBytes)
		if err != nil {
			return versioning.VectorClock{}, err
		}
		baseClock = versioning.Combine(current...)
	}

	// an unusable clock is rejected before anything is sent
	if err := versioning.Validate(baseClock); err != nil {
		return versioning.VectorClock{}, err
	}

	var written versioning.VectorClock
	err = c.session.Execute(func(conn *base.Conn, node cluster.Node) error {
		next, err := versioning.Merge(baseClock, c.nodeID(node), timestampMillis)
		if err != nil {
			return err
		}
		if _, err := invokeRequest(conn, common.NewPutRequest(c.config.StoreName, keyBytes, valueBytes, next, true), c.codec); err != nil {
			return err
		}
		written = next
		return nil
	})
	if err != nil {
		return versioning.VectorClock{}, err
	}

	Logger.Debugf("Put key %x with %s", keyBytes, written)
	return written, nil
}

// Delete removes all versions of key up to clock and reports whether the node
// deleted anything. If clock is nil the current versions are fetched first; a
// key without a value is not sent to the node and returns false.
func (c *StoreClient) Delete(key any, clock *versioning.VectorClock) (bool, error) {
	keyBytes, err := c.keySerializer.Serialize(key)
	if err != nil {
		return false, fmt.Errorf("failed to serialize key: %w", err)
	}

	var version versioning.VectorClock
	if clock != nil {
		version = clock.Clone()
	} else {
		current, err := c.versions(keyBytes)
		if err != nil {
			return false, err
		}
		if len(current) == 0 {
			return false, nil
		}
		version = versioning.Combine(current...)
	}

	if err := versioning.Validate(version); err != nil {
		return false, err
	}

	var deleted bool
	err = c.session.Execute(func(conn *base.Conn, _ cluster.Node) error {
		resp, err := invokeRequest(conn, common.NewDeleteRequest(c.config.StoreName, keyBytes, version, true), c.codec)
		if err != nil {
			return err
		}
		deleted = resp.Success
		return nil
	})
	return deleted, err
}

// --------------------------------------------------------------------------
// Client State
// --------------------------------------------------------------------------

// Topology returns the topology the client was bootstrapped with
func (c *StoreClient) Topology() cluster.Topology {
	return *c.topology
}

// CurrentNode returns the node requests are currently sent to
func (c *StoreClient) CurrentNode() cluster.Node {
	return c.session.CurrentNode()
}

// NodeStatus returns what the session observed about every node
func (c *StoreClient) NodeStatus() []session.NodeStatus {
	return c.session.NodeStatus()
}

// WriteMetrics writes the session metrics in Prometheus text format
func (c *StoreClient) WriteMetrics(w io.Writer) {
	c.session.WriteMetrics(w)
}

// Close closes the connection of the client
func (c *StoreClient) Close() error {
	return c.session.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// versions fetches the clocks of all versions stored under keyBytes
func (c *StoreClient) versions(keyBytes []byte) ([]versioning.VectorClock, error) {
	var clocks []versioning.VectorClock
	err := c.session.Execute(func(conn *base.Conn, _ cluster.Node) error {
		resp, err := invokeRequest(conn, common.NewGetVersionRequest(c.config.StoreName, keyBytes, true), c.codec)
		if err != nil {
			return err
		}
		clocks = resp.Versions
		return nil
	})
	return clocks, err
}

// resolve deserializes the values of raw and applies the resolver if more
// than one version exists
func (c *StoreClient) resolve(raw []common.Versioned) ([]versioning.Versioned, error) {
	versions := make([]versioning.Versioned, 0, len(raw))
	for _, v := range raw {
		value, err := c.valueSerializer.Deserialize(v.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize value: %w", err)
		}
		versions = append(versions, versioning.Versioned{Value: value, Clock: v.Version})
	}

	if c.resolver != nil && len(versions) > 1 {
		return c.resolver.Resolve(versions)
	}
	return versions, nil
}

// mapKey returns key in a form usable as a map key
func mapKey(key any) (any, error) {
	if b, ok := key.([]byte); ok {
		return string(b), nil
	}
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return nil, fmt.Errorf("key of type %T can not be used with GetAll", key)
	}
	return key, nil
}

// nodeID returns the id clocks are advanced for
func (c *StoreClient) nodeID(node cluster.Node) int32 {
	if c.config.NodeID == common.NodeIDFromSession {
		return node.ID
	}
	return int32(c.config.NodeID)
}

// buildSerializer creates the serializer of spec, override replaces its type
func buildSerializer(spec cluster.SerializerSpec, override string) (serialization.ISerializer, error) {
	if override != "" {
		spec.Type = override
	}
	s, err := serialization.NewRegistry().Build(spec)
	if err != nil {
		return nil, &common.ConfigurationError{Reason: "unusable serializer", Err: err}
	}
	return s, nil
}
