// Package versioning implements the vector clock logic used to order writes
// to a key and to detect concurrent writes.
//
// All functions are pure: clocks are passed by value and never modified in
// place, every operation returns a new clock.
//
// Key Components:
//
//   - VectorClock / ClockEntry: per key set of (node id, counter) pairs plus a
//     millisecond timestamp. A clock never holds two entries for one node.
//
//   - NewClock, Increment, Merge: create and advance clocks. Increment refreshes
//     the timestamp, Merge allows the caller to supply it.
//
//   - Compare, Dominates, Combine: relate clocks to each other. Clocks that do
//     not dominate each other are concurrent and both versions must be kept.
//
//   - IConflictResolver: pluggable reduction of concurrent versions, with a
//     name based ResolverRegistry ("none", "dominance", "timestamp").
//
// Usage Example:
//
//	clock := versioning.NewClock(1, time.Now().UnixMilli())
//	next, err := versioning.Increment(clock, 2) // {1:1, 2:1}
//	if versioning.Dominates(next, clock) {
//	  // next supersedes clock
//	}
package versioning
