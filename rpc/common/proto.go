package common

import (
	"github.com/ValentinKolb/vold/lib/versioning"
)

// Reserved store and keys every node serves its cluster metadata from
const (
	MetadataStore = "metadata"
	ClusterKey    = "cluster.xml"
	StoresKey     = "stores.xml"
)

// --------------------------------------------------------------------------
// Request / Response Structures
// --------------------------------------------------------------------------

// Request is a single operation sent to a node.
// Which fields are used depends on the type of the request.
type Request struct {
	Type        RequestType
	Store       string
	ShouldRoute bool

	Key     []byte                 // Used for: Get, GetVersion, Put, Delete
	Keys    [][]byte               // Used for: GetAll
	Value   []byte                 // Used for: Put
	Version versioning.VectorClock // Used for: Put (version of the value), Delete (version to remove)
}

// Response is the answer of a node to a single request.
type Response struct {
	Type RequestType

	Versioned []Versioned              // Used for: Get
	Keyed     []KeyedVersions          // Used for: GetAll
	Versions  []versioning.VectorClock // Used for: GetVersion
	Success   bool                     // Used for: Delete

	// Error is nil or carries a code of 0 if the request succeeded
	Error *ErrorInfo
}

// Versioned is one stored version of a value as transferred on the wire
type Versioned struct {
	Value   []byte
	Version versioning.VectorClock
}

// KeyedVersions are the versions of one key of a GetAll response
type KeyedVersions struct {
	Key      []byte
	Versions []Versioned
}

// ErrorInfo is the error record of a response
type ErrorInfo struct {
	Code    int32
	Message string
}

// Err converts the error record of the response into a *ProtocolError, or nil
func (r *Response) Err() error {
	if r.Error == nil || r.Error.Code == 0 {
		return nil
	}
	return &ProtocolError{Code: r.Error.Code, Message: r.Error.Message}
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(store string, key []byte, shouldRoute bool) *Request {
	return &Request{
		Type:        ReqTGet,
		Store:       store,
		ShouldRoute: shouldRoute,
		Key:         key,
	}
}

// NewGetAllRequest creates a new GetAll request for several keys
func NewGetAllRequest(store string, keys [][]byte, shouldRoute bool) *Request {
	return &Request{
		Type:        ReqTGetAll,
		Store:       store,
		ShouldRoute: shouldRoute,
		Keys:        keys,
	}
}

// NewGetVersionRequest creates a new GetVersion request
func NewGetVersionRequest(store string, key []byte, shouldRoute bool) *Request {
	return &Request{
		Type:        ReqTGetVersion,
		Store:       store,
		ShouldRoute: shouldRoute,
		Key:         key,
	}
}

// NewPutRequest creates a new Put request
func NewPutRequest(store string, key, value []byte, version versioning.VectorClock, shouldRoute bool) *Request {
	return &Request{
		Type:        ReqTPut,
		Store:       store,
		ShouldRoute: shouldRoute,
		Key:         key,
		Value:       value,
		Version:     version,
	}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(store string, key []byte, version versioning.VectorClock, shouldRoute bool) *Request {
	return &Request{
		Type:        ReqTDelete,
		Store:       store,
		ShouldRoute: shouldRoute,
		Key:         key,
		Version:     version,
	}
}

// NewErrorResponse creates a failed response of the given type
func NewErrorResponse(t RequestType, code int32, message string) *Response {
	return &Response{
		Type:  t,
		Error: &ErrorInfo{Code: code, Message: message},
	}
}

// --------------------------------------------------------------------------
// Request Type Definition
// --------------------------------------------------------------------------

// RequestType defines the operation of a request. The values are the ones used
// on the wire.
type RequestType uint8

const (
	ReqTGet        RequestType = 0 // Get all versions of a key
	ReqTGetAll     RequestType = 1 // Get all versions of several keys
	ReqTPut        RequestType = 2 // Store a new version of a key
	ReqTDelete     RequestType = 3 // Delete all versions up to a version
	ReqTGetVersion RequestType = 4 // Get only the version clocks of a key
)

// String returns the string representation of a RequestType.
func (t RequestType) String() string {
	switch t {
	case ReqTGet:
		return "get"
	case ReqTGetAll:
		return "getAll"
	case ReqTPut:
		return "put"
	case ReqTDelete:
		return "delete"
	case ReqTGetVersion:
		return "getVersion"
	default:
		return "unknown"
	}
}
