package session

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ValentinKolb/vold/lib/cluster"
	"github.com/ValentinKolb/vold/rpc/common"
	"github.com/ValentinKolb/vold/rpc/transport"
	"github.com/ValentinKolb/vold/rpc/transport/base"
	"github.com/VictoriaMetrics/metrics"
	"github.com/hashicorp/go-multierror"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("session")

// Operation is one request/response exchange on the live connection. A
// *common.ConnectionError returned by the operation makes the manager fail
// over to the next node, every other error is returned to the caller as is.
// The node is only recorded as available after a nil or *common.ProtocolError result.
type Operation func(conn *base.Conn, node cluster.Node) error

// NodeStatus is what the session observed about a node. It is informational
// only and never changes the order in which nodes are tried.
type NodeStatus struct {
	NodeID      int32
	Available   bool
	LastSuccess time.Time
	LastFailure time.Time
	LastError   string
}

// Option configures a Manager
type Option func(*Manager)

// WithStartIndex makes the first connection go to nodes[index] instead of a random node
func WithStartIndex(index int) Option {
	return func(m *Manager) {
		m.current = index
	}
}

// Manager owns the single live connection of a client. It connects to the
// nodes of the cluster round-robin, fails over when the connection breaks
// and proactively moves on after ReconnectInterval requests.
//
// All methods are serialized by an internal mutex, so a Manager can be
// shared between goroutines. Requests are still sent one at a time.
type Manager struct {
	mu sync.Mutex

	connector transport.IClientConnector
	config    common.ClientConfig
	nodes     []cluster.Node

	conn    *base.Conn
	current int
	closed  bool

	status *xsync.MapOf[int32, NodeStatus]

	metricSet  *metrics.Set
	requests   *metrics.Counter
	errors     *metrics.Counter
	failovers  *metrics.Counter
	reconnects *metrics.Counter
	duration   *metrics.Histogram
}

// New creates a manager for the nodes of a topology. No connection is opened
// before the first Execute or Reconnect.
func New(connector transport.IClientConnector, config common.ClientConfig, nodes []cluster.Node, opts ...Option) (*Manager, error) {
	if len(nodes) == 0 {
		return nil, &common.ConfigurationError{Reason: "topology contains no nodes"}
	}
	if config.Transport.ReconnectInterval < 1 {
		return nil, &common.ConfigurationError{Reason: "reconnect interval must be at least 1"}
	}

	m := &Manager{
		connector: connector,
		config:    config,
		nodes:     append([]cluster.Node(nil), nodes...),
		current:   rand.IntN(len(nodes)),
		status:    xsync.NewMapOf[int32, NodeStatus](),
		metricSet: metrics.NewSet(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.current = ((m.current % len(nodes)) + len(nodes)) % len(nodes)

	for _, n := range nodes {
		m.status.Store(n.ID, NodeStatus{NodeID: n.ID, Available: n.Available})
	}

	store := config.StoreName
	m.requests = m.metricSet.NewCounter(fmt.Sprintf(`vold_session_requests_total{store=%q}`, store))
	m.errors = m.metricSet.NewCounter(fmt.Sprintf(`vold_session_errors_total{store=%q}`, store))
	m.failovers = m.metricSet.NewCounter(fmt.Sprintf(`vold_session_failovers_total{store=%q}`, store))
	m.reconnects = m.metricSet.NewCounter(fmt.Sprintf(`vold_session_reconnects_total{store=%q}`, store))
	m.duration = m.metricSet.NewHistogram(fmt.Sprintf(`vold_session_request_duration_seconds{store=%q}`, store))

	return m, nil
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Execute runs op on the live connection. If the connection is due for
// recycling it is replaced first. On a connection failure the next node is
// tried, for at most one attempt per node; when every attempt failed the
// result wraps common.ErrAllNodesDown.
func (m *Manager) Execute(op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return common.ErrConnectionClosed
	}

	if err := m.maybeReconnect(); err != nil {
		return err
	}

	start := time.Now()
	defer func() { m.duration.Update(time.Since(start).Seconds()) }()
	m.requests.Inc()

	var failures *multierror.Error
	for attempt := 0; attempt < len(m.nodes); attempt++ {
		if attempt > 0 {
			m.failovers.Inc()
		}

		// a broken connection was dropped by the previous attempt, the next
		// node in line gets the next attempt
		if m.conn == nil {
			if err := m.open(m.current); err != nil {
				failures = multierror.Append(failures, err)
				m.current = m.next(m.current)
				continue
			}
		}

		node := m.nodes[m.current]
		err := op(m.conn, node)
		if err == nil {
			m.markSuccess(node)
			return nil
		}

		if !common.IsConnectionError(err) {
			// the connection is still usable. Only an error reported by the node
			// proves it answered, local failures leave its status untouched.
			var protoErr *common.ProtocolError
			if errors.As(err, &protoErr) {
				m.markSuccess(node)
			}
			m.errors.Inc()
			return err
		}

		Logger.Warningf("Request to node %d (%s) failed: %v", node.ID, node.SocketAddress(), err)
		m.markFailure(node, err)
		failures = multierror.Append(failures, err)
		m.dropConnection()
		m.current = m.next(m.current)
	}

	m.errors.Inc()
	Logger.Errorf("All %d nodes failed", len(m.nodes))
	return fmt.Errorf("%w: %w", common.ErrAllNodesDown, failures.ErrorOrNil())
}

// Reconnect closes the live connection and connects to the next node that
// accepts, starting after the current one. If no node accepts the result
// wraps common.ErrAllConnectionsFailed.
func (m *Manager) Reconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return common.ErrConnectionClosed
	}
	return m.reconnect()
}

// CurrentNode returns the node the session is (or will be) connected to
func (m *Manager) CurrentNode() cluster.Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nodes[m.current]
}

// Connected reports whether a live connection exists
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// NodeStatus returns the observed status of every node in topology order
func (m *Manager) NodeStatus() []NodeStatus {
	result := make([]NodeStatus, 0, len(m.nodes))
	for _, n := range m.nodes {
		if s, ok := m.status.Load(n.ID); ok {
			result = append(result, s)
		}
	}
	return result
}

// Stats is a snapshot of the session counters
type Stats struct {
	Requests   uint64
	Errors     uint64
	Failovers  uint64
	Reconnects uint64
}

// Stats returns the current counter values
func (m *Manager) Stats() Stats {
	return Stats{
		Requests:   m.requests.Get(),
		Errors:     m.errors.Get(),
		Failovers:  m.failovers.Get(),
		Reconnects: m.reconnects.Get(),
	}
}

// WriteMetrics writes the session metrics in Prometheus text format
func (m *Manager) WriteMetrics(w io.Writer) {
	m.metricSet.WritePrometheus(w)
}

// Close closes the live connection. The manager can not be used afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var err error
	if m.conn != nil {
		err = m.conn.Close()
		m.conn = nil
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods (callers hold m.mu)
// --------------------------------------------------------------------------

// maybeReconnect replaces the connection once it carried ReconnectInterval requests
func (m *Manager) maybeReconnect() error {
	if m.conn == nil || m.conn.RequestCount() < m.config.Transport.ReconnectInterval {
		return nil
	}
	Logger.Debugf("Connection to node %d reached %d requests, reconnecting",
		m.nodes[m.current].ID, m.conn.RequestCount())
	return m.reconnect()
}

// reconnect makes one pass over all nodes starting after the current one
func (m *Manager) reconnect() error {
	m.dropConnection()
	m.reconnects.Inc()

	var failures *multierror.Error
	index := m.current
	for range m.nodes {
		index = m.next(index)
		if err := m.open(index); err != nil {
			failures = multierror.Append(failures, err)
			continue
		}
		return nil
	}

	Logger.Errorf("Connections to all %d nodes failed", len(m.nodes))
	return fmt.Errorf("%w: %w", common.ErrAllConnectionsFailed, failures.ErrorOrNil())
}

// open connects to nodes[index] and makes it the current node on success
func (m *Manager) open(index int) error {
	node := m.nodes[index]
	conn, err := base.Open(m.connector, node.SocketAddress(), m.config.Transport.Protocol, m.config)
	if err != nil {
		Logger.Warningf("Failed to connect to node %d (%s): %v", node.ID, node.SocketAddress(), err)
		m.markFailure(node, err)
		return err
	}

	Logger.Infof("Connected to node %d (%s)", node.ID, node.SocketAddress())
	m.conn = conn
	m.current = index
	return nil
}

// dropConnection closes the live connection, if any
func (m *Manager) dropConnection() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil && !errors.Is(err, common.ErrConnectionClosed) {
		Logger.Debugf("Closing connection to %s: %v", m.conn.Endpoint(), err)
	}
	m.conn = nil
}

func (m *Manager) next(index int) int {
	return (index + 1) % len(m.nodes)
}

func (m *Manager) markSuccess(node cluster.Node) {
	m.status.Compute(node.ID, func(s NodeStatus, _ bool) (NodeStatus, bool) {
		s.NodeID = node.ID
		s.Available = true
		s.LastSuccess = time.Now()
		return s, false
	})
}

func (m *Manager) markFailure(node cluster.Node, err error) {
	m.status.Compute(node.ID, func(s NodeStatus, _ bool) (NodeStatus, bool) {
		s.NodeID = node.ID
		s.Available = false
		s.LastFailure = time.Now()
		s.LastError = err.Error()
		return s, false
	})
}
