package network_test

import (
	"context"
	"errors"
	"testing"

	fdb "github.com/fairtrace/fairtrace/pkg/db"
	"github.com/fairtrace/fairtrace/pkg/network"
	"github.com/google/go-cmp/cmp"
)

// graph of connections as (buyer, supplier).
type graph [][2]string

func (g graph) neighbors(ctx context.Context, nodeIds []string, direction fdb.Direction) ([]fdb.Connection, error) {
	in := map[string]struct{}{}
	for _, id := range nodeIds {
		in[id] = struct{}{}
	}
	conns := []fdb.Connection{}
	for _, e := range g {
		buyer, supplier := e[0], e[1]
		near := buyer
		if direction == fdb.Downstream {
			near = supplier
		}
		if _, ok := in[near]; !ok {
			continue
		}
		conns = append(conns, fdb.Connection{
			Id: buyer + ">" + supplier, BuyerId: buyer, SupplierId: supplier,
			Status: fdb.ConnectionActive,
		})
	}
	return conns, nil
}

func TestMap(t *testing.T) {
	//    roaster
	//       |
	//    exporter ---+
	//     |     |    |
	//   coop-a coop-b|
	//     |  \  |    |
	//   f-1   f-2    +--(exporter also buys from f-2 directly)
	g := graph{
		{"roaster", "exporter"},
		{"exporter", "coop-a"},
		{"exporter", "coop-b"},
		{"exporter", "f-2"},
		{"coop-a", "f-1"},
		{"coop-a", "f-2"},
		{"coop-b", "f-2"},
		{"f-1", "exporter"}, // cycle
	}

	for name, testcase := range map[string]struct {
		root  string
		depth int
		then  map[int][]string
	}{
		"when it is mapped from the middle, it has tiers both sides": {
			root: "exporter", depth: 5,
			then: map[int][]string{
				0:  {"exporter"},
				1:  {"coop-a", "coop-b", "f-2"},
				-1: {"f-1", "roaster"},
			},
		},
		"when depth is 1, only direct neighbors are in": {
			root: "exporter", depth: 1,
			then: map[int][]string{
				0:  {"exporter"},
				1:  {"coop-a", "coop-b", "f-2"},
				-1: {"f-1", "roaster"},
			},
		},
		"when depth is 0, only the root is in": {
			root: "exporter", depth: 0,
			then: map[int][]string{0: {"exporter"}},
		},
		"when it is mapped from the top, the nearest tier wins": {
			root: "roaster", depth: 10,
			then: map[int][]string{
				0: {"roaster"},
				1: {"exporter"},
				2: {"coop-a", "coop-b", "f-2"},
				3: {"f-1"},
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := network.Map(context.Background(), testcase.root, testcase.depth, g.neighbors)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(testcase.then, got.Tiers); diff != "" {
				t.Errorf("tiers (-want +got):\n%s", diff)
			}

			seen := map[string]int{}
			for _, c := range got.Connections {
				seen[c.Id]++
			}
			for id, n := range seen {
				if n != 1 {
					t.Errorf("connection %s appears %d times", id, n)
				}
			}
		})
	}

	t.Run("TierOf finds tier of the node", func(t *testing.T) {
		net, err := network.Map(context.Background(), "roaster", 10, g.neighbors)
		if err != nil {
			t.Fatal(err)
		}
		if tier, ok := net.TierOf("f-1"); !ok || tier != 3 {
			t.Errorf("tier of f-1: %d, %v", tier, ok)
		}
		if _, ok := net.TierOf("stranger"); ok {
			t.Error("stranger should not be in network")
		}
	})

	t.Run("when neighbors fails, it returns the error", func(t *testing.T) {
		expected := errors.New("fake error")
		_, err := network.Map(
			context.Background(), "roaster", 1,
			func(context.Context, []string, fdb.Direction) ([]fdb.Connection, error) {
				return nil, expected
			},
		)
		if !errors.Is(err, expected) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
