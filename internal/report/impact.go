package report

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

// ImpactTable is an affected table in impact output.
type ImpactTable struct {
	Name  string   `json:"name" yaml:"name"`
	Depth int      `json:"depth" yaml:"depth"`
	Kind  string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Path  []string `json:"path" yaml:"path"`
}

// ImpactProduct groups affected tables of one product.
type ImpactProduct struct {
	Product string        `json:"product" yaml:"product"`
	Tables  []ImpactTable `json:"tables" yaml:"tables"`
}

// ImpactOutput is the JSON and YAML form of an impact analysis.
type ImpactOutput struct {
	Root         string          `json:"root" yaml:"root"`
	RootProduct  string          `json:"root_product" yaml:"root_product"`
	CrossProduct bool            `json:"cross_product" yaml:"cross_product"`
	Affected     int             `json:"affected" yaml:"affected"`
	Products     []ImpactProduct `json:"products" yaml:"products"`
	Cycles       []EdgeOutput    `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// NewImpactOutput converts an impact analysis.
func NewImpactOutput(im *traverse.Impact) ImpactOutput {
	out := ImpactOutput{
		Root:         im.Root,
		RootProduct:  im.RootProduct,
		CrossProduct: im.CrossProduct(),
		Affected:     im.Count(),
		Products:     []ImpactProduct{},
	}
	if len(im.Cycles) > 0 {
		out.Cycles = edgeOutputs(im.Cycles)
	}
	for _, p := range im.Products {
		ip := ImpactProduct{Product: p.Product}
		for _, v := range sortVisits(p.Tables) {
			ip.Tables = append(ip.Tables, ImpactTable{Name: v.Name, Depth: v.Depth, Kind: string(v.Kind), Path: v.Path})
		}
		out.Products = append(out.Products, ip)
	}
	return out
}

func sortVisits(visits []traverse.Visit) []traverse.Visit {
	return SortedVisits(&traverse.Result{Nodes: visits})
}

// RenderImpact writes an impact analysis.
func RenderImpact(r *Renderer, im *traverse.Impact) error {
	out := NewImpactOutput(im)
	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(out)
	case ModeYAML:
		return r.YAML(out)
	case ModeDOT:
		return &UnsupportedModeError{Mode: ModeDOT, Report: "impact"}
	case ModeMarkdown:
		return impactMarkdown(r, out)
	default:
		return impactText(r, out)
	}
}

func impactTable(out ImpactOutput) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Product", "Depth", "Table", "Kind", "Path"})
	for _, p := range out.Products {
		for _, tbl := range p.Tables {
			t.AppendRow(table.Row{p.Product, tbl.Depth, tbl.Name, tbl.Kind, strings.Join(tbl.Path, " > ")})
		}
	}
	return t
}

func impactText(r *Renderer, out ImpactOutput) error {
	r.Header(1, "Impact of "+out.Root)
	if out.Affected == 0 {
		r.Muted("no downstream tables")
		return nil
	}
	r.Println("")
	t := impactTable(out)
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.Render()

	r.Muted(fmt.Sprintf("Total: %d tables in %d products", out.Affected, len(out.Products)))
	if out.CrossProduct {
		r.Warning(fmt.Sprintf("change crosses data product %s", out.RootProduct))
	}
	return nil
}

func impactMarkdown(r *Renderer, out ImpactOutput) error {
	r.Println(FormatHeader(1, "Impact of "+out.Root))
	r.Println("")
	r.Println(FormatKeyValue("Product", out.RootProduct))
	r.Println(FormatKeyValue("Affected tables", fmt.Sprintf("%d", out.Affected)))
	r.Println(FormatKeyValue("Cross product", fmt.Sprintf("%t", out.CrossProduct)))
	if out.Affected > 0 {
		r.Println("")
		r.Println(impactTable(out).RenderMarkdown())
	}
	return nil
}
