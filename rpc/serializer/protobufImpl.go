package serializer

import (
	"fmt"

	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/common"
	"google.golang.org/protobuf/encoding/protowire"
)

// ProtocolBuffersTag is the handshake tag of the protocol buffers protocol
const ProtocolBuffersTag = "pb0"

// NewProtobufSerializer creates a new serializer for the protocol buffers
// client protocol of the cluster
func NewProtobufSerializer() IRPCSerializer {
	return &protobufSerializerImpl{}
}

// protobufSerializerImpl implements IRPCSerializer by writing the protocol
// buffer messages field by field
type protobufSerializerImpl struct{}

// Field numbers of the client protocol messages
const (
	// VoldemortRequest
	fReqType        protowire.Number = 1
	fReqShouldRoute protowire.Number = 2
	fReqStore       protowire.Number = 3
	fReqGet         protowire.Number = 4
	fReqGetAll      protowire.Number = 5
	fReqPut         protowire.Number = 6
	fReqDelete      protowire.Number = 7

	// GetRequest, PutRequest, DeleteRequest
	fKey          protowire.Number = 1
	fPutVersioned protowire.Number = 2
	fDelVersion   protowire.Number = 2

	// GetAllRequest
	fGetAllKeys protowire.Number = 1

	// Versioned
	fVersionedValue   protowire.Number = 1
	fVersionedVersion protowire.Number = 2

	// VectorClock
	fClockEntries   protowire.Number = 1
	fClockTimestamp protowire.Number = 2

	// ClockEntry
	fEntryNodeID  protowire.Number = 1
	fEntryVersion protowire.Number = 2

	// Error
	fErrorCode    protowire.Number = 1
	fErrorMessage protowire.Number = 2

	// KeyedVersions
	fKeyedKey      protowire.Number = 1
	fKeyedVersions protowire.Number = 2

	// GetResponse, GetAllResponse, GetVersionResponse, DeleteResponse
	fRespList    protowire.Number = 1
	fRespSuccess protowire.Number = 1
	fRespError   protowire.Number = 2

	// PutResponse
	fPutRespError protowire.Number = 1
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (p protobufSerializerImpl) Protocol() string {
	return ProtocolBuffersTag
}

func (p protobufSerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	var b []byte
	b = appendVarintField(b, fReqType, uint64(req.Type))
	b = appendVarintField(b, fReqShouldRoute, protowire.EncodeBool(req.ShouldRoute))
	b = protowire.AppendTag(b, fReqStore, protowire.BytesType)
	b = protowire.AppendString(b, req.Store)

	switch req.Type {
	case common.ReqTGet, common.ReqTGetVersion:
		var get []byte
		get = appendBytesField(get, fKey, req.Key)
		b = appendBytesField(b, fReqGet, get)
	case common.ReqTGetAll:
		var getAll []byte
		for _, key := range req.Keys {
			getAll = appendBytesField(getAll, fGetAllKeys, key)
		}
		b = appendBytesField(b, fReqGetAll, getAll)
	case common.ReqTPut:
		var put []byte
		put = appendBytesField(put, fKey, req.Key)
		put = appendBytesField(put, fPutVersioned, encodeVersioned(common.Versioned{Value: req.Value, Version: req.Version}))
		b = appendBytesField(b, fReqPut, put)
	case common.ReqTDelete:
		var del []byte
		del = appendBytesField(del, fKey, req.Key)
		del = appendBytesField(del, fDelVersion, encodeClock(req.Version))
		b = appendBytesField(b, fReqDelete, del)
	default:
		return nil, fmt.Errorf("unsupported request type %s", req.Type)
	}

	return b, nil
}

func (p protobufSerializerImpl) DeserializeRequest(data []byte, req *common.Request) error {
	*req = common.Request{}
	var body []byte

	err := walk(data, func(f field) error {
		switch f.num {
		case fReqType:
			v, err := f.uint()
			req.Type = common.RequestType(v)
			return err
		case fReqShouldRoute:
			v, err := f.uint()
			req.ShouldRoute = protowire.DecodeBool(v)
			return err
		case fReqStore:
			v, err := f.message()
			req.Store = string(v)
			return err
		case fReqGet, fReqGetAll, fReqPut, fReqDelete:
			v, err := f.message()
			body = v
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	err = walk(body, func(f field) error {
		switch {
		case f.num == fGetAllKeys && req.Type == common.ReqTGetAll:
			v, err := f.message()
			req.Keys = append(req.Keys, clone(v))
			return err
		case f.num == fKey:
			v, err := f.message()
			req.Key = clone(v)
			return err
		case f.num == fPutVersioned && req.Type == common.ReqTPut:
			v, err := f.message()
			if err != nil {
				return err
			}
			versioned, err := decodeVersioned(v)
			req.Value = versioned.Value
			req.Version = versioned.Version
			return err
		case f.num == fDelVersion && req.Type == common.ReqTDelete:
			v, err := f.message()
			if err != nil {
				return err
			}
			req.Version, err = decodeClock(v)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalid %s request: %w", req.Type, err)
	}
	return nil
}

func (p protobufSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	var b []byte

	switch resp.Type {
	case common.ReqTGet:
		for _, v := range resp.Versioned {
			b = appendBytesField(b, fRespList, encodeVersioned(v))
		}
		b = appendError(b, fRespError, resp.Error)
	case common.ReqTGetAll:
		for _, kv := range resp.Keyed {
			b = appendBytesField(b, fRespList, encodeKeyedVersions(kv))
		}
		b = appendError(b, fRespError, resp.Error)
	case common.ReqTGetVersion:
		for _, v := range resp.Versions {
			b = appendBytesField(b, fRespList, encodeClock(v))
		}
		b = appendError(b, fRespError, resp.Error)
	case common.ReqTPut:
		b = appendError(b, fPutRespError, resp.Error)
	case common.ReqTDelete:
		b = appendVarintField(b, fRespSuccess, protowire.EncodeBool(resp.Success))
		b = appendError(b, fRespError, resp.Error)
	default:
		return nil, fmt.Errorf("unsupported response type %s", resp.Type)
	}

	return b, nil
}

func (p protobufSerializerImpl) DeserializeResponse(t common.RequestType, data []byte, resp *common.Response) error {
	*resp = common.Response{Type: t}

	errorField := fRespError
	if t == common.ReqTPut {
		errorField = fPutRespError
	}

	err := walk(data, func(f field) error {
		switch {
		case f.num == errorField:
			v, err := f.message()
			if err != nil {
				return err
			}
			resp.Error, err = decodeError(v)
			return err
		case f.num == fRespList && t == common.ReqTGet:
			v, err := f.message()
			if err != nil {
				return err
			}
			versioned, err := decodeVersioned(v)
			resp.Versioned = append(resp.Versioned, versioned)
			return err
		case f.num == fRespList && t == common.ReqTGetAll:
			v, err := f.message()
			if err != nil {
				return err
			}
			kv, err := decodeKeyedVersions(v)
			resp.Keyed = append(resp.Keyed, kv)
			return err
		case f.num == fRespList && t == common.ReqTGetVersion:
			v, err := f.message()
			if err != nil {
				return err
			}
			clock, err := decodeClock(v)
			resp.Versions = append(resp.Versions, clock)
			return err
		case f.num == fRespSuccess && t == common.ReqTDelete:
			v, err := f.uint()
			resp.Success = protowire.DecodeBool(v)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalid %s response: %w", t, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Message Encoding
// --------------------------------------------------------------------------

func encodeVersioned(v common.Versioned) []byte {
	var b []byte
	b = appendBytesField(b, fVersionedValue, v.Value)
	b = appendBytesField(b, fVersionedVersion, encodeClock(v.Version))
	return b
}

func encodeKeyedVersions(kv common.KeyedVersions) []byte {
	var b []byte
	b = appendBytesField(b, fKeyedKey, kv.Key)
	for _, v := range kv.Versions {
		b = appendBytesField(b, fKeyedVersions, encodeVersioned(v))
	}
	return b
}

func encodeClock(c versioning.VectorClock) []byte {
	var b []byte
	for _, e := range c.Entries {
		var entry []byte
		// int32 fields are sign extended to 64 bit on the wire
		entry = appendVarintField(entry, fEntryNodeID, uint64(int64(e.NodeID)))
		entry = appendVarintField(entry, fEntryVersion, e.Version)
		b = appendBytesField(b, fClockEntries, entry)
	}
	b = appendVarintField(b, fClockTimestamp, uint64(c.Timestamp))
	return b
}

func appendError(b []byte, num protowire.Number, e *common.ErrorInfo) []byte {
	if e == nil {
		return b
	}
	var msg []byte
	msg = appendVarintField(msg, fErrorCode, uint64(int64(e.Code)))
	msg = protowire.AppendTag(msg, fErrorMessage, protowire.BytesType)
	msg = protowire.AppendString(msg, e.Message)
	return appendBytesField(b, num, msg)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// --------------------------------------------------------------------------
// Message Decoding
// --------------------------------------------------------------------------

func decodeVersioned(data []byte) (common.Versioned, error) {
	v := common.Versioned{Value: []byte{}}
	err := walk(data, func(f field) error {
		switch f.num {
		case fVersionedValue:
			b, err := f.message()
			v.Value = clone(b)
			return err
		case fVersionedVersion:
			b, err := f.message()
			if err != nil {
				return err
			}
			v.Version, err = decodeClock(b)
			return err
		}
		return nil
	})
	return v, err
}

func decodeKeyedVersions(data []byte) (common.KeyedVersions, error) {
	kv := common.KeyedVersions{Key: []byte{}}
	err := walk(data, func(f field) error {
		switch f.num {
		case fKeyedKey:
			b, err := f.message()
			kv.Key = clone(b)
			return err
		case fKeyedVersions:
			b, err := f.message()
			if err != nil {
				return err
			}
			versioned, err := decodeVersioned(b)
			kv.Versions = append(kv.Versions, versioned)
			return err
		}
		return nil
	})
	return kv, err
}

func decodeClock(data []byte) (versioning.VectorClock, error) {
	var c versioning.VectorClock
	err := walk(data, func(f field) error {
		switch f.num {
		case fClockEntries:
			b, err := f.message()
			if err != nil {
				return err
			}
			var entry versioning.ClockEntry
			err = walk(b, func(ef field) error {
				switch ef.num {
				case fEntryNodeID:
					v, err := ef.uint()
					entry.NodeID = int32(v)
					return err
				case fEntryVersion:
					v, err := ef.uint()
					entry.Version = v
					return err
				}
				return nil
			})
			c.Entries = append(c.Entries, entry)
			return err
		case fClockTimestamp:
			v, err := f.uint()
			c.Timestamp = int64(v)
			return err
		}
		return nil
	})
	return c, err
}

func decodeError(data []byte) (*common.ErrorInfo, error) {
	e := &common.ErrorInfo{}
	err := walk(data, func(f field) error {
		switch f.num {
		case fErrorCode:
			v, err := f.uint()
			e.Code = int32(v)
			return err
		case fErrorMessage:
			v, err := f.message()
			e.Message = string(v)
			return err
		}
		return nil
	})
	return e, err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// field is a single decoded field of a message
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) uint() (uint64, error) {
	if f.typ != protowire.VarintType {
		return 0, fmt.Errorf("field %d: expected varint, got wire type %d", f.num, f.typ)
	}
	return f.varint, nil
}

func (f field) message() ([]byte, error) {
	if f.typ != protowire.BytesType {
		return nil, fmt.Errorf("field %d: expected length delimited, got wire type %d", f.num, f.typ)
	}
	return f.bytes, nil
}

// walk calls visit for every field of a message. Fields of unknown wire types
// are skipped.
func walk(b []byte, visit func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := visit(f); err != nil {
			return err
		}
	}
	return nil
}

// clone copies b so decoded values do not alias the frame buffer
func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
