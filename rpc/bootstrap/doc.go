// Package bootstrap implements the MetadataBootstrapper. Every node serves the
// cluster layout (cluster.xml) and the store definitions (stores.xml) from the
// reserved store "metadata"; the bootstrapper reads both from one of the
// configured endpoints and turns them into a cluster.Topology.
//
// Endpoints are shuffled to spread the bootstrap load of many clients. A
// temporary connection is opened per endpoint and closed before the next
// endpoint is tried. Unreachable endpoints and malformed metadata are
// collected with go-multierror and reported together in a
// common.BootstrapError once every endpoint failed.
package bootstrap
