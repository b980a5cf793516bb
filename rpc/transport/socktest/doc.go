// Package socktest runs fake cluster nodes in-process for tests.
//
// A Node speaks the node side of the wire protocol on a loopback port: it
// accepts the handshake, decodes requests with the protocol buffers codec and
// answers from a shared versioned MemoryStore. Failures can be injected per
// node (refused handshake, dropped connections, custom answers, stopped
// listener) to exercise failover and bootstrap fallbacks.
//
// Cluster starts several nodes at once and publishes a cluster.xml describing
// them in the metadata store, so a client can bootstrap against it.
package socktest
