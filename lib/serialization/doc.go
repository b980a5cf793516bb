// Package serialization converts application keys and values to and from the
// opaque byte sequences stored in the cluster.
//
// Each store declares the serializer type of its keys and values in
// stores.xml. The Registry maps these type names to factories:
//
//   - string: UTF-8 encoded strings
//   - json: JSON documents (decoded into map[string]any, []any, float64, ...)
//   - identity: raw bytes, passed through unchanged
//
// Applications can register additional types before creating a client.
package serialization
