package socktest

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/vold/lib/versioning"
	"github.com/ValentinKolb/vold/rpc/common"
)

// Error codes the fake node answers with
const (
	ErrCodeUnknownStore    int32 = 2
	ErrCodeObsoleteVersion int32 = 4
	ErrCodeBadRequest      int32 = 6
)

// MemoryStore is a versioned in-memory store shared by the nodes of a fake
// cluster. It follows the node side rules for versions: a put must not be
// older than or equal to a stored version, versions it supersedes are dropped
// and concurrent versions are kept as siblings.
type MemoryStore struct {
	mu     sync.Mutex
	stores map[string]map[string][]common.Versioned
}

// NewMemoryStore creates a store with the given (empty) user stores
func NewMemoryStore(storeNames ...string) *MemoryStore {
	s := &MemoryStore{stores: make(map[string]map[string][]common.Versioned)}
	for _, name := range storeNames {
		s.stores[name] = make(map[string][]common.Versioned)
	}
	return s
}

// SetMetadata stores cluster.xml and stores.xml in the metadata store
func (s *MemoryStore) SetMetadata(clusterXML, storesXML string) {
	s.Seed(common.MetadataStore, []byte(common.ClusterKey), []byte(clusterXML), versioning.VectorClock{})
	s.Seed(common.MetadataStore, []byte(common.StoresKey), []byte(storesXML), versioning.VectorClock{})
}

// Seed adds a version without any version checks. Seeding the same key with
// a different clock creates a sibling.
func (s *MemoryStore) Seed(store string, key, value []byte, clock versioning.VectorClock) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.stores[store]
	if !ok {
		data = make(map[string][]common.Versioned)
		s.stores[store] = data
	}
	data[string(key)] = append(data[string(key)], common.Versioned{Value: value, Version: clock.Clone()})
}

// Versions returns a copy of all versions stored under key
func (s *MemoryStore) Versions(store string, key []byte) []common.Versioned {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]common.Versioned(nil), s.stores[store][string(key)]...)
}

// Handle executes one request and returns the response a node would send
func (s *MemoryStore) Handle(req common.Request) common.Response {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.stores[req.Store]
	if !ok {
		return *common.NewErrorResponse(req.Type, ErrCodeUnknownStore, fmt.Sprintf("store %q does not exist", req.Store))
	}
	key := string(req.Key)

	switch req.Type {
	case common.ReqTGet:
		return common.Response{Type: req.Type, Versioned: append([]common.Versioned(nil), data[key]...)}

	case common.ReqTGetAll:
		// keys without a value are left out of the answer
		resp := common.Response{Type: req.Type}
		seen := make(map[string]bool, len(req.Keys))
		for _, k := range req.Keys {
			if seen[string(k)] || len(data[string(k)]) == 0 {
				continue
			}
			seen[string(k)] = true
			resp.Keyed = append(resp.Keyed, common.KeyedVersions{
				Key:      append([]byte(nil), k...),
				Versions: append([]common.Versioned(nil), data[string(k)]...),
			})
		}
		return resp

	case common.ReqTGetVersion:
		versions := make([]versioning.VectorClock, 0, len(data[key]))
		for _, v := range data[key] {
			versions = append(versions, v.Version)
		}
		return common.Response{Type: req.Type, Versions: versions}

	case common.ReqTPut:
		kept := make([]common.Versioned, 0, len(data[key]))
		for _, v := range data[key] {
			switch versioning.Compare(req.Version, v.Version) {
			case versioning.Before, versioning.Equal:
				return *common.NewErrorResponse(req.Type, ErrCodeObsoleteVersion,
					fmt.Sprintf("%s is obsolete, it is no greater than the current version of %s", req.Version, v.Version))
			case versioning.Concurrently:
				kept = append(kept, v)
			}
		}
		data[key] = append(kept, common.Versioned{Value: req.Value, Version: req.Version.Clone()})
		return common.Response{Type: req.Type}

	case common.ReqTDelete:
		kept := make([]common.Versioned, 0, len(data[key]))
		for _, v := range data[key] {
			if o := versioning.Compare(v.Version, req.Version); o != versioning.Before && o != versioning.Equal {
				kept = append(kept, v)
			}
		}
		deleted := len(kept) != len(data[key])
		if len(kept) == 0 {
			delete(data, key)
		} else {
			data[key] = kept
		}
		return common.Response{Type: req.Type, Success: deleted}

	default:
		return *common.NewErrorResponse(req.Type, ErrCodeBadRequest, fmt.Sprintf("unsupported request type %s", req.Type))
	}
}
