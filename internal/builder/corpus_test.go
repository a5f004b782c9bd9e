package builder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/shiftgraph/internal/testutil"
	"github.com/leapstack-labs/shiftgraph/pkg/naming"
)

func TestNewCorpus_Layout(t *testing.T) {
	root := testutil.WriteCorpus(t,
		testutil.Table{Kind: naming.KindFact, Name: "p1_fct_sales", Folder: "sales", Sources: []string{"int_p1_orders"}},
		testutil.Table{Kind: naming.KindIntermediate, Name: "int_p1_orders", Folder: "orders"},
	)
	// Fixtures in tests folders, non-SQL files and misplaced scripts.
	testutil.WriteFile(t, root, "facts/p1/sales/tests/ddl.p1_fct_sales_ut.sql", "CREATE TABLE x (id INT)")
	testutil.WriteFile(t, root, "facts/p1/sales/Makefile", "all:")
	testutil.WriteFile(t, root, "facts/p1/sales/ddl.p1_fct_sales.sql", "CREATE TABLE x (id INT)")
	testutil.WriteFile(t, root, "common.sql", "SELECT 1")

	corpus, err := NewCorpus(root, nil)
	require.NoError(t, err)

	units := corpus.Units()
	require.Len(t, units, 2)
	assert.Equal(t, "facts/p1/sales", units[0].Dir)
	assert.Equal(t, "facts/p1/sales/sql-scripts/dml.p1_fct_sales.sql", units[0].DMLPath)
	assert.Equal(t, "intermediates/p1/orders", units[1].Dir)
	assert.Empty(t, units[1].DMLPath)

	var failed []string
	for _, f := range corpus.LayoutFailures() {
		assert.Equal(t, FailureLayout, f.Type)
		failed = append(failed, f.Path)
	}
	assert.Equal(t, []string{"common.sql", "facts/p1/sales/ddl.p1_fct_sales.sql"}, failed)
}

func TestNewCorpus_Exclude(t *testing.T) {
	root := testutil.WriteCorpus(t,
		testutil.Table{Kind: naming.KindFact, Name: "p1_fct_sales", Folder: "sales"},
		testutil.Table{Kind: naming.KindFact, Name: "p1_fct_legacy", Folder: "legacy"},
		testutil.Table{Kind: naming.KindView, Name: "p1_mv_sales", Folder: "sales"},
	)

	corpus, err := NewCorpus(root, []string{"facts/*/legacy", "views/**"})
	require.NoError(t, err)

	units := corpus.Units()
	require.Len(t, units, 1)
	assert.Equal(t, "facts/p1/sales", units[0].Dir)
}

func TestNewCorpus_Errors(t *testing.T) {
	_, err := NewCorpus(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, err)

	_, err = NewCorpus(t.TempDir(), []string{"[unclosed"})
	assert.Error(t, err)
}

func TestNewCorpus_UnitWithoutDDL(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "facts/p1/sales/sql-scripts/dml.p1_fct_sales.sql", "INSERT INTO p1_fct_sales SELECT * FROM a")

	corpus, err := NewCorpus(root, nil)
	require.NoError(t, err)

	failures := corpus.LayoutFailures()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Error(), "unit has no ddl script")
}
