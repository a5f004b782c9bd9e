package report

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/shiftgraph/internal/traverse"
)

// LevelOutput is one deployment level.
type LevelOutput struct {
	Level  int      `json:"level" yaml:"level"`
	Tables []string `json:"tables" yaml:"tables"`
}

// OrderOutput is the JSON and YAML form of a migration order.
type OrderOutput struct {
	Root   string        `json:"root,omitempty" yaml:"root,omitempty"`
	Tables int           `json:"tables" yaml:"tables"`
	Levels []LevelOutput `json:"levels" yaml:"levels"`
	Cycles [][]string    `json:"cycles,omitempty" yaml:"cycles,omitempty"`
}

// NewOrderOutput converts a migration order.
func NewOrderOutput(o *traverse.Order) OrderOutput {
	out := OrderOutput{Root: o.Root, Tables: o.Len(), Levels: []LevelOutput{}, Cycles: o.Cycles}
	for i, level := range o.Levels {
		out.Levels = append(out.Levels, LevelOutput{Level: i, Tables: level})
	}
	return out
}

// RenderOrder writes a migration order.
func RenderOrder(r *Renderer, o *traverse.Order) error {
	out := NewOrderOutput(o)
	title := "Migration order"
	if o.Root != "" {
		title += " for " + o.Root
	}

	switch r.EffectiveMode() {
	case ModeJSON:
		return r.JSON(out)
	case ModeYAML:
		return r.YAML(out)
	case ModeDOT:
		return &UnsupportedModeError{Mode: ModeDOT, Report: "migration order"}
	case ModeMarkdown:
		r.Println(FormatHeader(1, title))
		r.Println("")
		for _, l := range out.Levels {
			r.Println(FormatHeader(2, fmt.Sprintf("Level %d", l.Level)))
			for _, name := range l.Tables {
				r.Printf("- %s\n", name)
			}
			r.Println("")
		}
		for _, c := range out.Cycles {
			r.Printf("> cycle: %s\n", strings.Join(c, ", "))
		}
		return nil
	default:
		styles := r.Styles()
		r.Header(1, title)
		for _, l := range out.Levels {
			r.Println(styles.Header2.Render(fmt.Sprintf("Level %d:", l.Level)))
			for _, name := range l.Tables {
				r.Printf("  %s\n", styles.Table.Render(name))
			}
		}
		for _, c := range out.Cycles {
			r.Warning("deploy together: " + strings.Join(c, ", "))
		}
		r.Muted(fmt.Sprintf("Total: %d tables, %d levels", out.Tables, len(out.Levels)))
		return nil
	}
}
