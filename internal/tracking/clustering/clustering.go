// Package clustering partitions hits into connected components of a
// neighborhood. Superclusters are built over the primary and secondary
// wire neighborhood of one superlayer; clusters split each supercluster
// along the primary neighborhood only.
package clustering

import (
	"sort"

	"github.com/paulmach/orb"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hits"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
)

const (
	excluded  = -1
	unvisited = 0
)

// Clusterizer finds connected components. It keeps its label buffer
// between calls and is not safe for concurrent use.
type Clusterizer struct {
	labels []int // excluded, unvisited or component number
	queue  []int

	nextSuper   int
	nextCluster int
}

// Reset prepares the clusterizer for an event over n entities and restarts
// cluster numbering.
func (c *Clusterizer) Reset(n int) {
	c.labels = c.labels[:0]
	c.ensure(n)
	c.nextSuper, c.nextCluster = 0, 0
}

func (c *Clusterizer) ensure(n int) {
	for len(c.labels) < n {
		c.labels = append(c.labels, excluded)
	}
}

// Components partitions nodes into the connected components of nb
// restricted to nodes. Relations are followed in both directions. Each
// component lists its members in increasing order; components are ordered
// by their smallest member. Work is linear in nodes plus relations.
func (c *Clusterizer) Components(nodes []int, nb *neighbors.Neighborhood) [][]int {
	if len(nodes) == 0 {
		return nil
	}
	c.ensure(nb.Len())
	for _, i := range nodes {
		c.labels[i] = unvisited
	}

	// Reverse adjacency for the nodes, so asymmetric filters still join.
	reverse := map[int][]int{}
	for _, i := range nodes {
		for _, r := range nb.Of(i) {
			if c.labels[r.To] != excluded {
				reverse[r.To] = append(reverse[r.To], i)
			}
		}
	}

	sorted := append([]int(nil), nodes...)
	sort.Ints(sorted)

	var comps [][]int
	label := 0
	for _, seed := range sorted {
		if c.labels[seed] != unvisited {
			continue // Already assigned
		}
		label++
		members := c.expand(seed, label, nb, reverse)
		sort.Ints(members)
		comps = append(comps, members)
	}

	for _, i := range nodes {
		c.labels[i] = excluded
	}
	return comps
}

// expand labels every node reachable from seed and returns them.
func (c *Clusterizer) expand(seed, label int, nb *neighbors.Neighborhood, reverse map[int][]int) []int {
	c.queue = append(c.queue[:0], seed)
	c.labels[seed] = label
	members := []int{seed}
	visit := func(j int) {
		if c.labels[j] != unvisited {
			return
		}
		c.labels[j] = label
		members = append(members, j)
		c.queue = append(c.queue, j)
	}
	for k := 0; k < len(c.queue); k++ {
		idx := c.queue[k]
		for _, r := range nb.Of(idx) {
			visit(r.To)
		}
		for _, j := range reverse[idx] {
			visit(j)
		}
	}
	return members
}

// Cluster is a connected group of wire hits of one superlayer.
type Cluster struct {
	ID           int
	SuperCluster int
	SuperLayer   int
	Hits         []int // wire hit indices, increasing
	Bound        orb.Bound
}

// Len returns the number of hits.
func (cl Cluster) Len() int { return len(cl.Hits) }

// SuperClusters groups the hits in [lo, hi) of superlayer sl along nb,
// normally the primary and secondary neighborhood. The SuperCluster field
// of each result equals its ID.
func (c *Clusterizer) SuperClusters(x *hits.Index, sl, lo, hi int, nb *neighbors.Neighborhood) []Cluster {
	nodes := make([]int, 0, hi-lo)
	for i := lo; i < hi; i++ {
		nodes = append(nodes, i)
	}
	var out []Cluster
	for _, members := range c.Components(nodes, nb) {
		out = append(out, Cluster{
			ID:           c.nextSuper,
			SuperCluster: c.nextSuper,
			SuperLayer:   sl,
			Hits:         members,
			Bound:        bound(x, members),
		})
		c.nextSuper++
	}
	tracef("superlayer %d: %d hits in %d superclusters", sl, hi-lo, len(out))
	return out
}

// Clusters splits a supercluster along nb, normally the primary
// neighborhood.
func (c *Clusterizer) Clusters(x *hits.Index, super Cluster, nb *neighbors.Neighborhood) []Cluster {
	var out []Cluster
	for _, members := range c.Components(super.Hits, nb) {
		out = append(out, Cluster{
			ID:           c.nextCluster,
			SuperCluster: super.ID,
			SuperLayer:   super.SuperLayer,
			Hits:         members,
			Bound:        bound(x, members),
		})
		c.nextCluster++
	}
	return out
}

func bound(x *hits.Index, members []int) orb.Bound {
	mp := make(orb.MultiPoint, len(members))
	for k, i := range members {
		p := x.Hit(i).Wire.RefPos
		mp[k] = orb.Point{p.X, p.Y}
	}
	return mp.Bound()
}
