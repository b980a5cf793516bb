package versioning

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// IConflictResolver reduces concurrent versions of one key to the versions the
// application wants to see. It is only consulted if more than one version exists.
type IConflictResolver interface {
	Resolve(versions []Versioned) ([]Versioned, error)
}

// ResolverFunc adapts a plain function to IConflictResolver
type ResolverFunc func(versions []Versioned) ([]Versioned, error)

func (f ResolverFunc) Resolve(versions []Versioned) ([]Versioned, error) {
	return f(versions)
}

// --------------------------------------------------------------------------
// Builtin Resolvers
// --------------------------------------------------------------------------

// NewDominanceResolver drops every version that is dominated by another one.
// Truly concurrent versions are all kept.
func NewDominanceResolver() IConflictResolver {
	return ResolverFunc(func(versions []Versioned) ([]Versioned, error) {
		result := make([]Versioned, 0, len(versions))
	outer:
		for i, candidate := range versions {
			for j, other := range versions {
				if i == j {
					continue
				}
				switch Compare(other.Clock, candidate.Clock) {
				case After:
					continue outer
				case Equal:
					// keep only the first of identical versions
					if j < i {
						continue outer
					}
				}
			}
			result = append(result, candidate)
		}
		return result, nil
	})
}

// NewTimestampResolver keeps only the version with the newest clock timestamp
// (last write wins). Ties keep the first version returned by the server.
func NewTimestampResolver() IConflictResolver {
	return ResolverFunc(func(versions []Versioned) ([]Versioned, error) {
		if len(versions) == 0 {
			return versions, nil
		}
		sorted := make([]Versioned, len(versions))
		copy(sorted, versions)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Clock.Timestamp > sorted[j].Clock.Timestamp
		})
		return sorted[:1], nil
	})
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// ResolverFactory creates a new resolver instance
type ResolverFactory func() IConflictResolver

// ResolverRegistry maps resolver names (as used in configuration) to factories
type ResolverRegistry struct {
	factories *xsync.MapOf[string, ResolverFactory]
}

// NewResolverRegistry creates a registry containing the builtin resolvers:
// "none" (no resolver), "dominance" and "timestamp"
func NewResolverRegistry() *ResolverRegistry {
	r := &ResolverRegistry{factories: xsync.NewMapOf[string, ResolverFactory]()}
	r.Register("none", func() IConflictResolver { return nil })
	r.Register("dominance", NewDominanceResolver)
	r.Register("timestamp", NewTimestampResolver)
	return r
}

// Register adds or replaces a resolver factory
func (r *ResolverRegistry) Register(name string, factory ResolverFactory) {
	r.factories.Store(name, factory)
}

// Get creates the resolver registered under name. An empty name is "none".
func (r *ResolverRegistry) Get(name string) (IConflictResolver, error) {
	if name == "" {
		name = "none"
	}
	factory, ok := r.factories.Load(name)
	if !ok {
		return nil, fmt.Errorf("unknown conflict resolver %q", name)
	}
	return factory(), nil
}
