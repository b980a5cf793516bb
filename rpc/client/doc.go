// Package client implements the store client: get, put and delete of versioned
// values in one store of the cluster.
//
// The package focuses on:
//   - Bootstrapping the topology and the key/value serializers of the store
//   - Computing the clock of a write from the versions the cluster holds
//   - Handing concurrent versions to an optional conflict resolver
//
// Key Components:
//
//   - NewStoreClient: validates the configuration, bootstraps the cluster
//     metadata and creates the session. Fails with a common.BootstrapError or
//     common.ConfigurationError if the store is not usable.
//
//   - Get / GetVersions: read all versions (or only their clocks) of a key.
//
//   - GetAll: reads several keys with one request. Keys without a value are
//     left out of the result.
//
//   - Put: without a clock the current clocks are fetched and combined, then
//     advanced for the node id of the client. The written clock is returned.
//
//   - Add: writes a key only if the cluster holds no version of it, otherwise
//     fails with common.ErrKeyExists.
//
//   - Delete: removes all versions up to a clock. A key without value is a
//     no-op returning false.
//
// All operations run through session.Manager.Execute and never retry on their
// own.
//
// Usage Example:
//
//	config := common.DefaultClientConfig("test", "localhost:6666")
//
//	c, err := client.NewStoreClient(config, tcp.NewTCPConnector(), serializer.NewProtobufSerializer(), nil)
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer c.Close()
//
//	clock, err := c.Put("hello", "world", nil)
//	versions, err := c.Get("hello")
//	deleted, err := c.Delete("hello", &clock)
package client
