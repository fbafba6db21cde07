// Package network maps supply chains around a node.
package network

import (
	"context"
	"sort"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
)

// NeighborsFunc returns active connections adjacent to nodes, in the direction.
//
// fdb.NodeInterface.Neighbors fits it, bound to a supply chain.
type NeighborsFunc func(ctx context.Context, nodeIds []string, direction fdb.Direction) ([]fdb.Connection, error)

// Network is a supply chain seen from a node.
type Network struct {
	Root string

	// Tiers of nodes.
	//
	// Tier 0 is the root. Positive tiers are suppliers (1: direct suppliers, 2: their suppliers, ...).
	// Negative tiers are buyers.
	//
	// Each node appears once, at the nearest tier from the root.
	Tiers map[int][]string

	// Connections traversed, without duplicates.
	Connections []fdb.Connection
}

// TierOf tells the tier where the node is. ok is false if the node is not in the network.
func (n Network) TierOf(nodeId string) (tier int, ok bool) {
	for t, ids := range n.Tiers {
		for _, id := range ids {
			if id == nodeId {
				return t, true
			}
		}
	}
	return 0, false
}

// Map traverses connections breadth first, up to depth tiers in both directions.
//
// Cycles are tolerated: nodes already reached are not traversed again.
func Map(ctx context.Context, root string, depth int, neighbors NeighborsFunc) (Network, error) {
	net := Network{
		Root:        root,
		Tiers:       map[int][]string{0: {root}},
		Connections: []fdb.Connection{},
	}
	tierOf := map[string]int{root: 0}
	seenConn := map[string]struct{}{}

	expand := func(frontier []string, direction fdb.Direction, tier int) ([]string, error) {
		if len(frontier) == 0 {
			return nil, nil
		}
		conns, err := neighbors(ctx, frontier, direction)
		if err != nil {
			return nil, err
		}
		next := []string{}
		for _, c := range conns {
			if _, ok := seenConn[c.Id]; !ok {
				seenConn[c.Id] = struct{}{}
				net.Connections = append(net.Connections, c)
			}

			far := c.SupplierId
			if direction == fdb.Downstream {
				far = c.BuyerId
			}
			if _, ok := tierOf[far]; ok {
				continue
			}
			tierOf[far] = tier
			next = append(next, far)
		}
		sort.Strings(next)
		if len(next) != 0 {
			net.Tiers[tier] = next
		}
		return next, nil
	}

	// both directions advance together, so that a node is placed at the nearest tier.
	up, down := []string{root}, []string{root}
	for level := 1; level <= depth && (len(up) != 0 || len(down) != 0); level++ {
		var err error
		if up, err = expand(up, fdb.Upstream, level); err != nil {
			return Network{}, err
		}
		if down, err = expand(down, fdb.Downstream, -level); err != nil {
			return Network{}, err
		}
	}

	sort.Slice(net.Connections, func(i, j int) bool {
		return net.Connections[i].Id < net.Connections[j].Id
	})
	return net, nil
}
