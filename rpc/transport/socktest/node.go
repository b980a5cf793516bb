package socktest

import (
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/serializer"
	"github.com/ValentinKolb/vold/rpc/transport/base"
)

// RequestHook may replace the answer of a node. Returning nil lets the store
// answer, returning a response skips the store.
type RequestHook func(req common.Request) *common.Response

// Node is one fake cluster node listening on a loopback port
type Node struct {
	ID int32

	server *base.Server
	store  *MemoryStore
	codec  serializer.IRPCSerializer

	requests atomic.Int64
	dropping atomic.Bool
	hook     atomic.Pointer[RequestHook]
}

// StartNode starts a node on 127.0.0.1 with a random port serving store
func StartNode(id int32, store *MemoryStore) (*Node, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	codec := serializer.NewProtobufSerializer()
	n := &Node{ID: id, store: store, codec: codec}
	n.server = base.NewServer(listener, n.handle, 10*time.Second, codec.Protocol())

	go n.server.Serve()
	return n, nil
}

// Addr returns host:port of the node
func (n *Node) Addr() string {
	return n.server.Addr()
}

// Port returns the socket port of the node
func (n *Node) Port() int {
	_, port, _ := net.SplitHostPort(n.Addr())
	p, _ := strconv.Atoi(port)
	return p
}

// Requests returns the number of requests the node received
func (n *Node) Requests() int64 {
	return n.requests.Load()
}

// RejectHandshake makes the node answer every new handshake with a refusal
func (n *Node) RejectHandshake(reject bool) {
	if reject {
		n.server.SetProtocols()
	} else {
		n.server.SetProtocols(n.codec.Protocol())
	}
}

// DropRequests makes the node close the connection instead of answering
func (n *Node) DropRequests(drop bool) {
	n.dropping.Store(drop)
}

// SetHook installs a hook that runs before the store, nil removes it
func (n *Node) SetHook(hook RequestHook) {
	if hook == nil {
		n.hook.Store(nil)
		return
	}
	n.hook.Store(&hook)
}

// Stop closes the listener and all connections. Dialing a stopped node fails.
func (n *Node) Stop() error {
	return n.server.Close()
}

// handle decodes a frame, runs the request and encodes the answer
func (n *Node) handle(data []byte) []byte {
	n.requests.Add(1)
	if n.dropping.Load() {
		return nil
	}

	var req common.Request
	if err := n.codec.DeserializeRequest(data, &req); err != nil {
		base.Logger.Errorf("Node %d: failed to decode request: %v", n.ID, err)
		return nil
	}

	var resp common.Response
	if hook := n.hook.Load(); hook != nil {
		if r := (*hook)(req); r != nil {
			resp = *r
		} else {
			resp = n.store.Handle(req)
		}
	} else {
		resp = n.store.Handle(req)
	}

	out, err := n.codec.SerializeResponse(resp)
	if err != nil {
		base.Logger.Errorf("Node %d: failed to encode response: %v", n.ID, err)
		return nil
	}
	return out
}
