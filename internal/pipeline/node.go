// Package pipeline models the table-producing units of a pipeline estate.
package pipeline

import (
	"slices"

	"github.com/leapstack-labs/shiftgraph/pkg/flinksql"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

// Node is one table-producing unit, or an external table that units read
// from but nothing in the corpus produces.
type Node struct {
	// Name is the table name; it identifies the node in the graph.
	Name string
	// Kind is the modelling role, taken from the kind folder.
	Kind naming.Kind
	// Product is the data product folder name.
	Product string
	// Sink is the table the unit defines. Always equal to Name.
	Sink string
	// Sources are the tables read, in first-appearance order.
	Sources []string
	// InsertTargets are the tables written by the unit's INSERT statements.
	InsertTargets []string
	// Path is the unit folder relative to the corpus root (slash separated).
	Path string
	// DDLPath and DMLPath are the unit scripts relative to the corpus root.
	DDLPath string
	DMLPath string
	// External is true for nodes synthesised from unresolved references.
	External bool
	// Resolved is true once every source maps to a node in the graph.
	Resolved bool
	// Metadata is the structural metadata of the table definition.
	Metadata *flinksql.Metadata
}

// NewNode builds the node for a parsed unit.
func NewNode(u Unit, stmt *flinksql.Statement) *Node {
	md := stmt.Metadata
	return &Node{
		Name:          stmt.Sink,
		Kind:          u.Kind,
		Product:       u.Product,
		Sink:          stmt.Sink,
		Sources:       slices.Clone(stmt.Sources),
		InsertTargets: slices.Clone(stmt.InsertTargets),
		Path:          u.Dir,
		DDLPath:       u.DDLPath,
		DMLPath:       u.DMLPath,
		Metadata:      &md,
	}
}

// NewExternal builds the leaf node for a table no unit produces.
// The product is guessed from the naming convention.
func NewExternal(name string) *Node {
	_, product, _ := naming.ShortTableName(name)
	return &Node{
		Name:     name,
		Kind:     naming.KindSource,
		Product:  product,
		Sink:     name,
		External: true,
		Resolved: true,
	}
}

// SelfReferencing reports whether the node reads its own sink, as upsert
// tables that join against their previous state do.
func (n *Node) SelfReferencing() bool {
	return slices.Contains(n.Sources, n.Name)
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	c.Sources = slices.Clone(n.Sources)
	c.InsertTargets = slices.Clone(n.InsertTargets)
	if n.Metadata != nil {
		c.Metadata = n.Metadata.Clone()
	}
	return &c
}
