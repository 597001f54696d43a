package execctx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmetrics/cascade/internal/identity"
)

func TestNewMintsDistinctRuns(t *testing.T) {
	base := t.TempDir()
	first := New(base)
	second := New(base)
	assert.NotEqual(t, first.RunDir(), second.RunDir())
}

func TestAttachReusesRunDirectory(t *testing.T) {
	base := t.TempDir()
	original := New(base)
	attached := Attach(base, original.RunID)

	assert.Equal(t, original.RunDir(), attached.RunDir())
	assert.Equal(t, original.Path("bundle/bundle.csv"), attached.Path("bundle/bundle.csv"))
}

func TestJobDirIsPerJobUnderRunDir(t *testing.T) {
	ec := New(t.TempDir())
	recipe, err := identity.NewRecipeID(6, "estimate", identity.Both)
	require.NoError(t, err)

	fit := identity.NewJobID(recipe, "fit")
	draws := identity.NewJobID(recipe, "compute_draws_from_parent_fit")

	assert.Equal(t, filepath.Join(ec.RunDir(), "6_estimate_both_fit"), ec.JobDir(fit))
	assert.NotEqual(t, ec.JobDir(fit), ec.JobDir(draws))
}
