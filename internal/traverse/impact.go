package traverse

import (
	"sort"

	"github.com/leapstack-labs/shiftgraph/internal/dag"
)

// ProductImpact lists the affected tables of one data product.
type ProductImpact struct {
	Product string
	Tables  []Visit
}

// Impact is the downstream blast radius of a change to one table.
type Impact struct {
	Root        string
	RootProduct string
	Products    []ProductImpact
	Cycles      []dag.Edge
}

// CrossProduct reports whether tables outside the root's product are
// affected.
func (im *Impact) CrossProduct() bool {
	for _, p := range im.Products {
		if p.Product != im.RootProduct {
			return true
		}
	}
	return false
}

// Count returns the number of affected tables, the root excluded.
func (im *Impact) Count() int {
	n := 0
	for _, p := range im.Products {
		n += len(p.Tables)
	}
	return n
}

// ImpactOf collects every descendant of table grouped by data product.
// Products are sorted by name with the root's own product first; tables
// within a product keep descendant order.
func ImpactOf(snap *dag.Snapshot, table string) (*Impact, error) {
	res, err := Descendants(snap, table, Unbounded)
	if err != nil {
		return nil, err
	}

	root, _ := res.Visit(table)
	im := &Impact{Root: table, RootProduct: root.Product, Cycles: res.Cycles}

	index := make(map[string]int)
	for _, v := range res.Nodes {
		if v.Depth == 0 {
			continue
		}
		i, ok := index[v.Product]
		if !ok {
			i = len(im.Products)
			index[v.Product] = i
			im.Products = append(im.Products, ProductImpact{Product: v.Product})
		}
		im.Products[i].Tables = append(im.Products[i].Tables, v)
	}

	sort.SliceStable(im.Products, func(i, j int) bool {
		a, b := im.Products[i].Product, im.Products[j].Product
		if (a == im.RootProduct) != (b == im.RootProduct) {
			return a == im.RootProduct
		}
		return a < b
	})
	return im, nil
}
