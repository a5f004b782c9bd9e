package commands

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/shiftgraph/internal/report"
	"github.com/leapstack-labs/shiftgraph/internal/validate"
)

// ErrViolations is returned when validation found error-level violations.
var ErrViolations = errors.New("convention violations found")

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	Disable []string
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check pipelines against naming and table conventions",
		Long: `Check every pipeline for script and table naming, changelog mode,
cleanup policy, schema registry contexts and INSERT targets.

Rules can be disabled in shiftgraph.yaml under validate.disabled or with
--disable. The command fails when an error-level rule is violated;
warnings are reported only. Run 'shiftgraph rules' for the rule list.`,
		Example: `  # Check all pipelines
  shiftgraph validate

  # Skip the schema context check
  shiftgraph validate --disable schema-context

  # Output as JSON for CI annotations
  shiftgraph validate -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Disable, "disable", nil, "Rule IDs or names to skip")

	return cmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	disabled := slices.Concat(cmdCtx.Cfg.Validate.Disabled, opts.Disable)
	v, err := validate.New(validate.Config{Disabled: disabled})
	if err != nil {
		return err
	}

	snap, err := cmdCtx.Graph(cmd.Context())
	if err != nil {
		return err
	}

	violations := v.Validate(snap)
	cmdCtx.Logger.Debug("validation finished", "rules", len(v.Rules()), "violations", len(violations))
	if err := report.RenderViolations(cmdCtx.Renderer, violations); err != nil {
		return err
	}
	if validate.HasErrors(violations) {
		return fmt.Errorf("%w in %d tables", ErrViolations, countTables(violations))
	}
	return nil
}

func countTables(violations []validate.Violation) int {
	seen := make(map[string]bool)
	for _, v := range violations {
		if v.Severity == validate.SeverityError {
			seen[v.Table] = true
		}
	}
	return len(seen)
}
