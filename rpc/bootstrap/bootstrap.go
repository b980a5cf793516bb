package bootstrap

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/ValentinKolb/vold/lib/cluster"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/serializer"
	"github.com/ValentinKolb/vold/rpc/transport"
	"github.com/ValentinKolb/vold/rpc/transport/base"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("bootstrap")

// ErrMetadataNotSingular is returned if a metadata key does not hold exactly one value
var ErrMetadataNotSingular = errors.New("metadata key must hold exactly one value")

// Bootstrapper fetches the cluster topology from the metadata store of one of
// the bootstrap endpoints.
type Bootstrapper struct {
	connector transport.IClientConnector
	codec     serializer.IRPCSerializer
	config    common.ClientConfig

	// shuffle reorders the endpoints before they are tried
	shuffle func(endpoints []string)
}

// New creates a bootstrapper that dials through connector and encodes with codec
func New(connector transport.IClientConnector, codec serializer.IRPCSerializer, config common.ClientConfig) *Bootstrapper {
	return &Bootstrapper{
		connector: connector,
		codec:     codec,
		config:    config,
		shuffle: func(endpoints []string) {
			rand.Shuffle(len(endpoints), func(i, j int) {
				endpoints[i], endpoints[j] = endpoints[j], endpoints[i]
			})
		},
	}
}

// Bootstrap tries the endpoints in random order. The first endpoint that
// delivers the nodes and the descriptor of storeName wins. Failures of an
// endpoint move on to the next one, except for a store that is missing in a
// valid stores.xml, which is returned at once as a *common.ConfigurationError.
// If no endpoint succeeds the result is a *common.BootstrapError.
func (b *Bootstrapper) Bootstrap(endpoints []string, storeName string) (*cluster.Topology, error) {
	if len(endpoints) == 0 {
		return nil, &common.ConfigurationError{Reason: "no bootstrap urls provided"}
	}

	order := append([]string(nil), endpoints...)
	b.shuffle(order)

	var failures *multierror.Error
	for _, endpoint := range order {
		topology, err := b.fetch(endpoint, storeName)
		if err == nil {
			Logger.Infof("Bootstrapped store %q from %s: %d nodes", storeName, endpoint, len(topology.Nodes))
			return topology, nil
		}

		var configErr *common.ConfigurationError
		if errors.As(err, &configErr) {
			return nil, err
		}

		Logger.Warningf("Bootstrap from %s failed: %v", endpoint, err)
		failures = multierror.Append(failures, fmt.Errorf("%s: %w", endpoint, err))
	}

	return nil, &common.BootstrapError{Err: failures.ErrorOrNil()}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// fetch reads and parses the metadata of a single endpoint. The temporary
// connection is closed on every path.
func (b *Bootstrapper) fetch(endpoint, storeName string) (*cluster.Topology, error) {
	conn, err := base.Open(b.connector, endpoint, b.codec.Protocol(), b.config)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	clusterXML, err := b.getMetadata(conn, common.ClusterKey)
	if err != nil {
		return nil, err
	}
	nodes, err := cluster.ParseClusterXML(clusterXML)
	if err != nil {
		return nil, err
	}

	storesXML, err := b.getMetadata(conn, common.StoresKey)
	if err != nil {
		return nil, err
	}
	stores, err := cluster.ParseStoresXML(storesXML)
	if err != nil {
		return nil, err
	}

	store, err := cluster.FindStore(stores, storeName)
	if err != nil {
		return nil, &common.ConfigurationError{Reason: fmt.Sprintf("store %q is not defined by the cluster", storeName), Err: err}
	}
	if err := store.Validate(); err != nil {
		return nil, &common.ConfigurationError{Reason: "store definition rejected", Err: err}
	}

	return &cluster.Topology{Nodes: nodes, Store: store}, nil
}

// getMetadata reads key from the metadata store without routing
func (b *Bootstrapper) getMetadata(conn *base.Conn, key string) ([]byte, error) {
	payload, err := b.codec.SerializeRequest(*common.NewGetRequest(common.MetadataStore, []byte(key), false))
	if err != nil {
		return nil, err
	}

	data, err := conn.Exchange(payload)
	if err != nil {
		return nil, err
	}

	var resp common.Response
	if err := b.codec.DeserializeResponse(common.ReqTGet, data, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	if len(resp.Versioned) != 1 {
		return nil, fmt.Errorf("%w: %s has %d values", ErrMetadataNotSingular, key, len(resp.Versioned))
	}
	return resp.Versioned[0].Value, nil
}
