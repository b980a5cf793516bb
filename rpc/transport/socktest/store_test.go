package socktest

import (
	"testing"

	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clock(entries ...uint64) versioning.VectorClock {
	c := versioning.VectorClock{}
	for node, v := range entries {
		if v > 0 {
			c.Entries = append(c.Entries, versioning.ClockEntry{NodeID: int32(node), Version: v})
		}
	}
	return c
}

func TestMemoryStorePut(t *testing.T) {
	s := NewMemoryStore("test")
	key := []byte("k")

	resp := s.Handle(*common.NewPutRequest("test", key, []byte("a"), clock(1), false))
	require.NoError(t, resp.Err())

	// same version is obsolete
	resp = s.Handle(*common.NewPutRequest("test", key, []byte("b"), clock(1), false))
	var protoErr *common.ProtocolError
	require.ErrorAs(t, resp.Err(), &protoErr)
	assert.Equal(t, ErrCodeObsoleteVersion, protoErr.Code)

	// concurrent version becomes a sibling
	resp = s.Handle(*common.NewPutRequest("test", key, []byte("c"), clock(0, 1), false))
	require.NoError(t, resp.Err())
	assert.Len(t, s.Versions("test", key), 2)

	// a version after both replaces them
	resp = s.Handle(*common.NewPutRequest("test", key, []byte("d"), clock(2, 1), false))
	require.NoError(t, resp.Err())
	versions := s.Versions("test", key)
	require.Len(t, versions, 1)
	assert.Equal(t, []byte("d"), versions[0].Value)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore("test")
	key := []byte("k")
	s.Seed("test", key, []byte("a"), clock(2))

	resp := s.Handle(*common.NewDeleteRequest("test", key, clock(1), false))
	assert.False(t, resp.Success)

	resp = s.Handle(*common.NewDeleteRequest("test", key, clock(2), false))
	assert.True(t, resp.Success)
	assert.Empty(t, s.Versions("test", key))
}

func TestMemoryStoreUnknownStore(t *testing.T) {
	s := NewMemoryStore()
	resp := s.Handle(*common.NewGetRequest("missing", []byte("k"), false))
	assert.Error(t, resp.Err())
}

func TestMemoryStoreGetAll(t *testing.T) {
	s := NewMemoryStore("test")
	s.Seed("test", []byte("a"), []byte("1"), clock(1))
	s.Seed("test", []byte("b"), []byte("2"), clock(0, 1))

	resp := s.Handle(*common.NewGetAllRequest("test", [][]byte{[]byte("a"), []byte("missing"), []byte("b"), []byte("a")}, false))
	require.NoError(t, resp.Err())
	require.Len(t, resp.Keyed, 2)

	assert.Equal(t, []byte("a"), resp.Keyed[0].Key)
	require.Len(t, resp.Keyed[0].Versions, 1)
	assert.Equal(t, []byte("1"), resp.Keyed[0].Versions[0].Value)
	assert.Equal(t, []byte("b"), resp.Keyed[1].Key)
	assert.Equal(t, clock(0, 1), resp.Keyed[1].Versions[0].Version)
}
