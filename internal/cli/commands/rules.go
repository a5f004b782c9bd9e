package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/validate"
)

// RuleOutput is the JSON and YAML form of a validation rule.
type RuleOutput struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Severity    string `json:"severity" yaml:"severity"`
	Description string `json:"description" yaml:"description"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rules [rule]",
		Short: "List the convention rules used by validate",
		Long: `List every convention rule with its ID, name and severity, or show a
single rule looked up by ID or name.`,
		Example: `  # List all rules
  shiftgraph rules

  # Show one rule
  shiftgraph rules SG03
  shiftgraph rules changelog-mode`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			var ids []string
			for _, r := range validate.Rules() {
				ids = append(ids, r.ID+"\t"+r.Name)
			}
			return ids, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			rules := validate.Rules()
			if len(args) == 1 {
				rule, ok := validate.Lookup(args[0])
				if !ok {
					return fmt.Errorf("rule %q not found", args[0])
				}
				rules = []validate.Rule{rule}
			}
			return renderRules(cmdCtx.Renderer, rules)
		},
	}
}

func renderRules(r *report.Renderer, rules []validate.Rule) error {
	out := make([]RuleOutput, 0, len(rules))
	for _, rule := range rules {
		out = append(out, RuleOutput{
			ID:          rule.ID,
			Name:        rule.Name,
			Severity:    rule.Severity.String(),
			Description: rule.Description,
		})
	}

	mode := r.EffectiveMode()
	switch mode {
	case report.ModeJSON:
		return r.JSON(out)
	case report.ModeYAML:
		return r.YAML(out)
	case report.ModeDOT:
		return &report.UnsupportedModeError{Mode: report.ModeDOT, Report: "rules"}
	case report.ModeMarkdown:
		r.Println(report.FormatHeader(1, "Convention rules"))
		r.Println("")
		for _, rule := range out {
			r.Printf("- **%s** - %s (`%s`)\n", rule.ID, rule.Name, rule.Severity)
			r.Println("  " + rule.Description)
		}
		r.Println("")
		return nil
	}

	r.Header(1, fmt.Sprintf("Convention rules (%d)", len(out)))
	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Severity", "Description"})
	for _, rule := range out {
		t.AppendRow(table.Row{rule.ID, rule.Name, rule.Severity, rule.Description})
	}
	t.Render()
	r.Muted("Disable rules with 'shiftgraph validate --disable <rule>' or validate.disabled in shiftgraph.yaml")
	return nil
}
