package versioning

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrDuplicateNode is returned when a vector clock holds more than one entry for
// the same node id. Such a clock can not be advanced and is never repaired.
var ErrDuplicateNode = errors.New("only one version entry per node is allowed")

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// ClockEntry is the version counter of a single node
type ClockEntry struct {
	NodeID  int32  `json:"nodeId"`
	Version uint64 `json:"version"`
}

// VectorClock tracks the causal history of one key.
// Entries are unique by NodeID, Timestamp is in milliseconds since the epoch.
type VectorClock struct {
	Entries   []ClockEntry `json:"versions"`
	Timestamp int64        `json:"timestamp"`
}

// Versioned is a value together with the clock it was written with
type Versioned struct {
	Value any
	Clock VectorClock
}

// Occurred describes how two clocks relate to each other
type Occurred int

const (
	// Equal means both clocks describe the same version
	Equal Occurred = iota
	// Before means the first clock happened before the second
	Before
	// After means the first clock happened after the second
	After
	// Concurrently means neither clock dominates the other (siblings)
	Concurrently
)

// String returns the string representation of an Occurred value.
func (o Occurred) String() string {
	switch o {
	case Equal:
		return "equal"
	case Before:
		return "before"
	case After:
		return "after"
	case Concurrently:
		return "concurrently"
	default:
		return "unknown"
	}
}

// VersioningError reports a broken clock invariant
type VersioningError struct {
	NodeID int32
	Err    error
}

func (e *VersioningError) Error() string {
	return fmt.Sprintf("vector clock invalid for node %d: %v", e.NodeID, e.Err)
}

func (e *VersioningError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Clock Operations
// --------------------------------------------------------------------------

// NewClock creates the first clock of a key: one entry for nodeID with version 1.
func NewClock(nodeID int32, timestampMillis int64) VectorClock {
	return VectorClock{
		Entries:   []ClockEntry{{NodeID: nodeID, Version: 1}},
		Timestamp: timestampMillis,
	}
}

// Increment returns a copy of clock where the entry of nodeID is advanced by one
// (or added with version 1) and the timestamp is set to now.
func Increment(clock VectorClock, nodeID int32) (VectorClock, error) {
	return advance(clock, nodeID, time.Now().UnixMilli())
}

// Merge works like Increment, but a non nil timestamp replaces the refreshed one.
// It is used for writes that carry an explicit origin or expiry time.
func Merge(clock VectorClock, nodeID int32, timestampMillis *int64) (VectorClock, error) {
	ts := time.Now().UnixMilli()
	if timestampMillis != nil {
		ts = *timestampMillis
	}
	return advance(clock, nodeID, ts)
}

// advance implements Increment and Merge
func advance(clock VectorClock, nodeID int32, ts int64) (VectorClock, error) {
	if err := Validate(clock); err != nil {
		return VectorClock{}, err
	}

	next := clock.Clone()
	next.Timestamp = ts

	for i := range next.Entries {
		if next.Entries[i].NodeID == nodeID {
			next.Entries[i].Version++
			return next, nil
		}
	}

	next.Entries = append(next.Entries, ClockEntry{NodeID: nodeID, Version: 1})
	return next, nil
}

// Validate checks that every node id occurs at most once
func Validate(clock VectorClock) error {
	seen := make(map[int32]struct{}, len(clock.Entries))
	for _, entry := range clock.Entries {
		if _, ok := seen[entry.NodeID]; ok {
			return &VersioningError{NodeID: entry.NodeID, Err: ErrDuplicateNode}
		}
		seen[entry.NodeID] = struct{}{}
	}
	return nil
}

// Compare reports how a relates to b. Missing entries count as version 0.
func Compare(a, b VectorClock) Occurred {
	aMap := a.toMap()
	bMap := b.toMap()

	aBigger := false
	bBigger := false

	for node, av := range aMap {
		bv := bMap[node]
		if av > bv {
			aBigger = true
		} else if av < bv {
			bBigger = true
		}
	}
	for node, bv := range bMap {
		if _, ok := aMap[node]; !ok && bv > 0 {
			bBigger = true
		}
	}

	switch {
	case !aBigger && !bBigger:
		return Equal
	case aBigger && !bBigger:
		return After
	case !aBigger && bBigger:
		return Before
	default:
		return Concurrently
	}
}

// Dominates reports whether a is strictly newer than b
func Dominates(a, b VectorClock) bool {
	return Compare(a, b) == After
}

// Combine returns the per node maximum of all clocks. The timestamp is the
// largest timestamp seen. A write based on the combined clock supersedes every
// input clock once it is incremented.
func Combine(clocks ...VectorClock) VectorClock {
	merged := make(map[int32]uint64)
	order := make([]int32, 0)
	var ts int64

	for _, clock := range clocks {
		for _, entry := range clock.Entries {
			existing, ok := merged[entry.NodeID]
			if !ok {
				order = append(order, entry.NodeID)
			}
			if !ok || entry.Version > existing {
				merged[entry.NodeID] = entry.Version
			}
		}
		if clock.Timestamp > ts {
			ts = clock.Timestamp
		}
	}

	result := VectorClock{Entries: make([]ClockEntry, 0, len(order)), Timestamp: ts}
	for _, node := range order {
		result.Entries = append(result.Entries, ClockEntry{NodeID: node, Version: merged[node]})
	}
	return result
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// Clone returns a deep copy of the clock
func (c VectorClock) Clone() VectorClock {
	entries := make([]ClockEntry, len(c.Entries))
	copy(entries, c.Entries)
	return VectorClock{Entries: entries, Timestamp: c.Timestamp}
}

// Version returns the version of nodeID, or 0 if the node has no entry
func (c VectorClock) Version(nodeID int32) uint64 {
	for _, entry := range c.Entries {
		if entry.NodeID == nodeID {
			return entry.Version
		}
	}
	return 0
}

// String returns a compact representation like "version(0:3, 2:1) ts:1700000000000"
func (c VectorClock) String() string {
	entries := make([]ClockEntry, len(c.Entries))
	copy(entries, c.Entries)
	sort.Slice(entries, func(i, j int) bool { return entries[i].NodeID < entries[j].NodeID })

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%d:%d", e.NodeID, e.Version))
	}
	return fmt.Sprintf("version(%s) ts:%d", strings.Join(parts, ", "), c.Timestamp)
}

func (c VectorClock) toMap() map[int32]uint64 {
	m := make(map[int32]uint64, len(c.Entries))
	for _, entry := range c.Entries {
		m[entry.NodeID] = entry.Version
	}
	return m
}
