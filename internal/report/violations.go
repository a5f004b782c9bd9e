package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/leapstack-labs/shiftgraph/internal/validate"
)

// ViolationOutput is a convention breach in JSON and YAML output.
type ViolationOutput struct {
	Table    string `json:"table" yaml:"table"`
	File     string `json:"file" yaml:"file"`
	Rule     string `json:"rule" yaml:"rule"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message" yaml:"message"`
}

// RenderViolations writes validation results.
func RenderViolations(r *Renderer, violations []validate.Violation) error {
	out := make([]ViolationOutput, 0, len(violations))
	for _, v := range violations {
		out = append(out, ViolationOutput{
			Table:    v.Table,
			File:     v.File,
			Rule:     v.Rule,
			Severity: v.Severity.String(),
			Message:  v.Message,
		})
	}

	mode := r.EffectiveMode()
	switch mode {
	case ModeJSON:
		return r.JSON(out)
	case ModeYAML:
		return r.YAML(out)
	case ModeDOT:
		return &UnsupportedModeError{Mode: ModeDOT, Report: "validation"}
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Table", "Rule", "Severity", "File", "Message"})
	for _, v := range out {
		t.AppendRow(table.Row{v.Table, v.Rule, v.Severity, v.File, v.Message})
	}

	if mode == ModeMarkdown {
		r.Println(FormatHeader(1, "Convention check"))
		r.Println("")
		if len(out) == 0 {
			r.Println("No violations.")
			return nil
		}
		r.Println(t.RenderMarkdown())
		return nil
	}

	r.Header(1, "Convention check")
	if len(out) == 0 {
		r.Success("no violations")
		return nil
	}
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.Render()
	r.Warning(fmt.Sprintf("%d violations", len(out)))
	return nil
}
