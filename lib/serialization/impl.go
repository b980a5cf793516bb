package serialization

import (
	"encoding/json"
	"fmt"
)

// NewStringSerializer creates a serializer storing strings as UTF-8 bytes
func NewStringSerializer() ISerializer {
	return &stringSerializerImpl{}
}

// NewJSONSerializer creates a serializer storing values as JSON documents
func NewJSONSerializer() ISerializer {
	return &jsonSerializerImpl{}
}

// NewIdentitySerializer creates a serializer passing raw bytes through unchanged
func NewIdentitySerializer() ISerializer {
	return &identitySerializerImpl{}
}

type stringSerializerImpl struct{}

type jsonSerializerImpl struct{}

type identitySerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serialization.ISerializer)
// --------------------------------------------------------------------------

func (s stringSerializerImpl) Serialize(v any) ([]byte, error) {
	switch t := v.(type) {
	case string:
		return []byte(t), nil
	case []byte:
		return t, nil
	case fmt.Stringer:
		return []byte(t.String()), nil
	default:
		return nil, fmt.Errorf("%w: string serializer got %T", ErrUnsupportedType, v)
	}
}

func (s stringSerializerImpl) Deserialize(b []byte) (any, error) {
	return string(b), nil
}

func (j jsonSerializerImpl) Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (j jsonSerializerImpl) Deserialize(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (i identitySerializerImpl) Serialize(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("%w: identity serializer got %T", ErrUnsupportedType, v)
	}
}

func (i identitySerializerImpl) Deserialize(b []byte) (any, error) {
	return b, nil
}
