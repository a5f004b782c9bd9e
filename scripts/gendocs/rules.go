package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/shiftgraph/internal/validate"
)

// generateRulesDocs writes the convention rules reference.
func generateRulesDocs(outDir string) error {
	log.Printf("Generating rules docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	rules := validate.Rules()
	w := NewMarkdownWriter()

	w.Frontmatter("Convention Rules", "Pipeline conventions checked by shiftgraph validate")
	w.GeneratedMarker()

	w.Header(1, "Convention Rules")
	w.Paragraph(fmt.Sprintf("`shiftgraph validate` checks every pipeline against %d rules. "+
		"External tables have no scripts and are never checked.", len(rules)))

	w.Header(2, "Severity Levels")
	w.Table(
		[]string{"Severity", "Description"},
		[][]string{
			{InlineCode(validate.SeverityError.String()), "Fails the command"},
			{InlineCode(validate.SeverityWarning.String()), "Reported only"},
		},
	)

	w.Header(2, "Configuration")
	w.Paragraph("Rules are disabled by ID or name in `shiftgraph.yaml` or with `--disable`:")
	w.CodeBlock("yaml", `validate:
  disabled:
    - SG05            # by ID
    - cleanup-policy  # by name`)

	w.Header(2, "Rules")
	var rows [][]string
	for _, r := range rules {
		rows = append(rows, []string{Bold(r.ID), InlineCode(r.Name), r.Severity.String(), cleanDescription(r.Description)})
	}
	w.Table([]string{"ID", "Name", "Severity", "Description"}, rows)

	if err := os.WriteFile(filepath.Join(outDir, "index.md"), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated index.md")
	return nil
}
