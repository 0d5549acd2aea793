package identity

import (
	"context"
	"fmt"

	"github.com/AnganSamadder/PayBack-sub004/internal/models"
)

// EdgeStore is the slice of storage the alias graph needs. The full store
// interface satisfies it.
type EdgeStore interface {
	// GetAliasEdge returns the outgoing edge for a normalized alias, or
	// (nil, nil) when the alias has no edge.
	GetAliasEdge(ctx context.Context, alias string) (*models.AliasEdge, error)

	// ListAliasEdgesByCanonical returns every edge whose canonical field
	// equals the given id, via the canonical index.
	ListAliasEdgesByCanonical(ctx context.Context, canonical string) ([]models.AliasEdge, error)

	// ListAliasEdges returns the entire edge set.
	ListAliasEdges(ctx context.Context) ([]models.AliasEdge, error)
}

// Graph answers resolution queries over the alias edge set.
type Graph struct {
	store EdgeStore

	// fullScanFallback enables the legacy equivalence-class path that
	// scans the whole edge table instead of trusting the canonical
	// index. Correct but slow; kept behind a flag so it can be deleted
	// once index backfill is confirmed complete.
	fullScanFallback bool
}

// Option configures a Graph.
type Option func(*Graph)

// WithFullScanFallback toggles the legacy full-table-scan path for
// equivalence-class lookups.
func WithFullScanFallback(enabled bool) Option {
	return func(g *Graph) { g.fullScanFallback = enabled }
}

// NewGraph creates a Graph over the given edge store.
func NewGraph(store EdgeStore, opts ...Option) *Graph {
	g := &Graph{store: store}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ResolveCanonical follows alias edges from id until it reaches an identity
// with no outgoing edge, which is by definition canonical. Chains are
// expected to be at most alias -> canonical in healthy data; the visited set
// exists as a last-resort defense so that a corrupted cyclic edge set
// terminates (returning the id where the cycle closed) instead of looping.
func (g *Graph) ResolveCanonical(ctx context.Context, id string) (string, error) {
	current := Normalize(id)
	visited := map[string]bool{}
	for {
		if visited[current] {
			return current, nil
		}
		visited[current] = true

		edge, err := g.store.GetAliasEdge(ctx, current)
		if err != nil {
			return "", fmt.Errorf("failed to look up alias edge for %q: %w", current, err)
		}
		if edge == nil {
			return current, nil
		}
		current = Normalize(edge.Canonical)
	}
}

// WouldCreateCycle reports whether inserting the edge source -> target would
// make resolution of target reach source. Must be checked before writing any
// new edge.
func (g *Graph) WouldCreateCycle(ctx context.Context, source, target string) (bool, error) {
	src := Normalize(source)
	current := Normalize(target)
	visited := map[string]bool{}
	for {
		if current == src {
			return true, nil
		}
		if visited[current] {
			return false, nil
		}
		visited[current] = true

		edge, err := g.store.GetAliasEdge(ctx, current)
		if err != nil {
			return false, fmt.Errorf("failed to look up alias edge for %q: %w", current, err)
		}
		if edge == nil {
			return false, nil
		}
		current = Normalize(edge.Canonical)
	}
}

// EquivalenceClass returns the canonical id plus every alias that resolves to
// it. The primary path uses the canonical index; when the legacy fallback is
// enabled the whole edge table is scanned and each source resolved, which
// stays correct while an index backfill is incomplete.
func (g *Graph) EquivalenceClass(ctx context.Context, canonicalID string) ([]string, error) {
	canonical := Normalize(canonicalID)
	if g.fullScanFallback {
		return g.equivalenceClassFullScan(ctx, canonical)
	}

	edges, err := g.store.ListAliasEdgesByCanonical(ctx, canonical)
	if err != nil {
		return nil, fmt.Errorf("failed to list alias edges for %q: %w", canonical, err)
	}
	members := []string{canonical}
	for _, edge := range edges {
		alias := Normalize(edge.Alias)
		if alias != canonical {
			members = append(members, alias)
		}
	}
	return members, nil
}

func (g *Graph) equivalenceClassFullScan(ctx context.Context, canonical string) ([]string, error) {
	edges, err := g.store.ListAliasEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan alias edges: %w", err)
	}
	members := []string{canonical}
	seen := map[string]bool{canonical: true}
	for _, edge := range edges {
		alias := Normalize(edge.Alias)
		if seen[alias] {
			continue
		}
		resolved, err := g.ResolveCanonical(ctx, alias)
		if err != nil {
			return nil, err
		}
		if resolved == canonical {
			seen[alias] = true
			members = append(members, alias)
		}
	}
	return members, nil
}
