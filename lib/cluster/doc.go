// Package cluster describes the layout of a cluster: its nodes, the stores it
// serves and the quorum settings of each store.
//
// The descriptions are read from two metadata documents every node serves
// from the reserved "metadata" store:
//
//   - cluster.xml: one <server> element per node with id, host, http-port,
//     socket-port and the list of partitions the node owns.
//
//   - stores.xml: one <store> element per store with persistence engine,
//     routing, replication factor, required/preferred reads and writes and the
//     key and value serializers.
//
// A Topology combines the parsed nodes with the descriptor of the one store a
// client accesses. It is built once during bootstrap and only read afterwards.
package cluster
