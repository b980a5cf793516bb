package serialization

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/vold/lib/cluster"
	"github.com/puzpuzpuz/xsync/v3"
)

// ErrUnsupportedType is returned if a serializer is given a value it can not encode
var ErrUnsupportedType = errors.New("unsupported value type")

// ISerializer converts keys and values between their application form and the
// opaque bytes stored in the cluster
type ISerializer interface {
	// Serialize converts v into bytes
	Serialize(v any) ([]byte, error)
	// Deserialize converts bytes back into the application form
	Deserialize(b []byte) (any, error)
}

// Factory creates a serializer from the serializer definition of a store
type Factory func(spec cluster.SerializerSpec) (ISerializer, error)

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry maps the serializer type names used in stores.xml to factories
type Registry struct {
	factories *xsync.MapOf[string, Factory]
}

// NewRegistry creates a registry with the builtin serializers
// "string", "json" and "identity"
func NewRegistry() *Registry {
	r := &Registry{factories: xsync.NewMapOf[string, Factory]()}
	r.Register("string", func(cluster.SerializerSpec) (ISerializer, error) { return NewStringSerializer(), nil })
	r.Register("json", func(cluster.SerializerSpec) (ISerializer, error) { return NewJSONSerializer(), nil })
	r.Register("identity", func(cluster.SerializerSpec) (ISerializer, error) { return NewIdentitySerializer(), nil })
	return r
}

// Register adds or replaces the factory for a type name
func (r *Registry) Register(typeName string, factory Factory) {
	r.factories.Store(typeName, factory)
}

// Build creates the serializer described by spec
func (r *Registry) Build(spec cluster.SerializerSpec) (ISerializer, error) {
	factory, ok := r.factories.Load(spec.Type)
	if !ok {
		return nil, fmt.Errorf("no serializer registered for type %q", spec.Type)
	}
	return factory(spec)
}
