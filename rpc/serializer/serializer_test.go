package serializer

import (
	"testing"

	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func testClock() versioning.VectorClock {
	return versioning.VectorClock{
		Entries: []versioning.ClockEntry{
			{NodeID: 0, Version: 3},
			{NodeID: 2, Version: 1},
			{NodeID: -1, Version: 1 << 40},
		},
		Timestamp: 1700000000000,
	}
}

// testRequests creates a set of requests of every supported type
func testRequests() []common.Request {
	return []common.Request{
		*common.NewGetRequest("test", []byte("key"), true),
		*common.NewGetRequest(common.MetadataStore, []byte(common.ClusterKey), false),
		*common.NewGetVersionRequest("test", []byte("key"), true),
		*common.NewGetAllRequest("test", [][]byte{[]byte("a"), []byte("b"), {}}, true),
		*common.NewPutRequest("test", []byte("key"), []byte("value"), testClock(), true),
		*common.NewPutRequest("test", []byte("key"), []byte{}, versioning.NewClock(1, 5), true),
		*common.NewDeleteRequest("test", []byte("key"), testClock(), true),
	}
}

func TestRequestRoundTrip(t *testing.T) {
	s := NewProtobufSerializer()

	for _, req := range testRequests() {
		t.Run(req.Type.String(), func(t *testing.T) {
			data, err := s.SerializeRequest(req)
			require.NoError(t, err)

			var result common.Request
			require.NoError(t, s.DeserializeRequest(data, &result))

			assert.Equal(t, req.Type, result.Type)
			assert.Equal(t, req.Store, result.Store)
			assert.Equal(t, req.ShouldRoute, result.ShouldRoute)
			assert.Equal(t, req.Key, result.Key)
			assert.Equal(t, req.Keys, result.Keys)
			if req.Type == common.ReqTPut {
				assert.Equal(t, req.Value, result.Value)
			}
			if req.Type == common.ReqTPut || req.Type == common.ReqTDelete {
				assert.Equal(t, req.Version, result.Version)
			}
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	s := NewProtobufSerializer()

	testCases := []struct {
		name string
		resp common.Response
	}{
		{"get empty", common.Response{Type: common.ReqTGet}},
		{"get concurrent versions", common.Response{
			Type: common.ReqTGet,
			Versioned: []common.Versioned{
				{Value: []byte("a"), Version: versioning.NewClock(1, 10)},
				{Value: []byte("b"), Version: versioning.NewClock(2, 20)},
			},
		}},
		{"get version", common.Response{
			Type:     common.ReqTGetVersion,
			Versions: []versioning.VectorClock{testClock()},
		}},
		{"get all", common.Response{
			Type: common.ReqTGetAll,
			Keyed: []common.KeyedVersions{
				{Key: []byte("a"), Versions: []common.Versioned{{Value: []byte("1"), Version: testClock()}}},
				{Key: []byte("b"), Versions: []common.Versioned{
					{Value: []byte("x"), Version: versioning.NewClock(1, 10)},
					{Value: []byte("y"), Version: versioning.NewClock(2, 20)},
				}},
			},
		}},
		{"get all error", *common.NewErrorResponse(common.ReqTGetAll, 2, "unknown store")},
		{"put", common.Response{Type: common.ReqTPut}},
		{"put error", *common.NewErrorResponse(common.ReqTPut, 4, "obsolete version")},
		{"delete", common.Response{Type: common.ReqTDelete, Success: true}},
		{"delete error", *common.NewErrorResponse(common.ReqTDelete, -2, "negative code")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := s.SerializeResponse(tc.resp)
			require.NoError(t, err)

			var result common.Response
			require.NoError(t, s.DeserializeResponse(tc.resp.Type, data, &result))
			assert.Equal(t, tc.resp, result)
		})
	}
}

func TestResponseError(t *testing.T) {
	s := NewProtobufSerializer()

	data, err := s.SerializeResponse(*common.NewErrorResponse(common.ReqTGet, 7, "store unreachable"))
	require.NoError(t, err)

	var resp common.Response
	require.NoError(t, s.DeserializeResponse(common.ReqTGet, data, &resp))

	err = resp.Err()
	require.Error(t, err)
	var protoErr *common.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, int32(7), protoErr.Code)
	assert.Equal(t, "store unreachable", protoErr.Message)

	// code 0 is success
	ok := common.NewErrorResponse(common.ReqTGet, 0, "")
	assert.NoError(t, ok.Err())
}

func TestGetAllWireLayout(t *testing.T) {
	s := NewProtobufSerializer()

	data, err := s.SerializeRequest(*common.NewGetAllRequest("test", [][]byte{[]byte("a"), []byte("b")}, true))
	require.NoError(t, err)

	// GetAllRequest{repeated bytes keys = 1} is field 5 of the request
	var getAll []byte
	getAll = protowire.AppendTag(getAll, 1, protowire.BytesType)
	getAll = protowire.AppendBytes(getAll, []byte("a"))
	getAll = protowire.AppendTag(getAll, 1, protowire.BytesType)
	getAll = protowire.AppendBytes(getAll, []byte("b"))

	var expected []byte
	expected = protowire.AppendTag(expected, 1, protowire.VarintType)
	expected = protowire.AppendVarint(expected, 1)
	expected = protowire.AppendTag(expected, 2, protowire.VarintType)
	expected = protowire.AppendVarint(expected, 1)
	expected = protowire.AppendTag(expected, 3, protowire.BytesType)
	expected = protowire.AppendString(expected, "test")
	expected = protowire.AppendTag(expected, 5, protowire.BytesType)
	expected = protowire.AppendBytes(expected, getAll)
	assert.Equal(t, expected, data)

	// KeyedVersions{key = 1, repeated Versioned versions = 2} in field 1 of the response
	var versioned []byte
	versioned = protowire.AppendTag(versioned, 1, protowire.BytesType)
	versioned = protowire.AppendBytes(versioned, []byte("v"))
	var keyed []byte
	keyed = protowire.AppendTag(keyed, 1, protowire.BytesType)
	keyed = protowire.AppendBytes(keyed, []byte("a"))
	keyed = protowire.AppendTag(keyed, 2, protowire.BytesType)
	keyed = protowire.AppendBytes(keyed, versioned)
	var resp []byte
	resp = protowire.AppendTag(resp, 1, protowire.BytesType)
	resp = protowire.AppendBytes(resp, keyed)

	var result common.Response
	require.NoError(t, s.DeserializeResponse(common.ReqTGetAll, resp, &result))
	require.Len(t, result.Keyed, 1)
	assert.Equal(t, []byte("a"), result.Keyed[0].Key)
	require.Len(t, result.Keyed[0].Versions, 1)
	assert.Equal(t, []byte("v"), result.Keyed[0].Versions[0].Value)
	assert.Empty(t, result.Keyed[0].Versions[0].Version.Entries)
}

func TestUnknownFieldsAreSkipped(t *testing.T) {
	s := NewProtobufSerializer()

	data, err := s.SerializeResponse(common.Response{Type: common.ReqTDelete, Success: true})
	require.NoError(t, err)

	// append a fixed64 and a string field the client does not know
	data = protowire.AppendTag(data, 15, protowire.Fixed64Type)
	data = protowire.AppendFixed64(data, 99)
	data = protowire.AppendTag(data, 16, protowire.BytesType)
	data = protowire.AppendString(data, "future")

	var resp common.Response
	require.NoError(t, s.DeserializeResponse(common.ReqTDelete, data, &resp))
	assert.True(t, resp.Success)
}

func TestMalformedPayload(t *testing.T) {
	s := NewProtobufSerializer()

	var resp common.Response
	assert.Error(t, s.DeserializeResponse(common.ReqTGet, []byte{0x0a, 0x10, 0x01}, &resp))

	// field 1 of a GetResponse must be length delimited
	bad := protowire.AppendTag(nil, 1, protowire.VarintType)
	bad = protowire.AppendVarint(bad, 1)
	assert.Error(t, s.DeserializeResponse(common.ReqTGet, bad, &resp))

	var req common.Request
	assert.Error(t, s.DeserializeRequest([]byte{0xff}, &req))
}

func TestForProtocol(t *testing.T) {
	s, err := ForProtocol("pb0")
	require.NoError(t, err)
	assert.Equal(t, "pb0", s.Protocol())

	_, err = ForProtocol("vp3")
	assert.Error(t, err)
}
