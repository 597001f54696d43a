package plan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/job"
	"github.com/healthmetrics/cascade/internal/jobgraph"
	"github.com/healthmetrics/cascade/internal/locations"
	"github.com/healthmetrics/cascade/internal/settings"
)

// Hierarchy: 1 (level 0) -> {4, 5} (level 1), 4 -> 6 (level 2).
const testHierarchy = `
- {id: 1, parent: 0, name: Global, level: 0}
- {id: 4, parent: 1, name: North, level: 1}
- {id: 5, parent: 1, name: South, level: 1}
- {id: 6, parent: 4, name: Coastal, level: 2}
`

func testLocations(t *testing.T) *locations.Hierarchy {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testHierarchy), 0o644))
	h, err := locations.Load(context.Background(), path)
	require.NoError(t, err)
	return h
}

func testDoc(drill, splitLevel, samples int) *settings.Document {
	return &settings.Document{
		Model: &settings.Model{
			DrillLocation: drill,
			SplitSexLevel: splitLevel,
			SampleCount:   samples,
		},
		Policies: &settings.Policies{},
	}
}

func estimateID(t *testing.T, loc int, sex identity.Sex) identity.RecipeID {
	t.Helper()
	id, err := identity.NewRecipeID(loc, recipeEstimate, sex)
	require.NoError(t, err)
	return id
}

func globalRecipeID(t *testing.T) identity.RecipeID {
	t.Helper()
	id, err := identity.NewRecipeID(0, recipeBundleSetup, identity.Both)
	require.NoError(t, err)
	return id
}

func TestBuildRecipeGraphDrill(t *testing.T) {
	hier := testLocations(t)
	rg, err := BuildRecipeGraph(context.Background(), testDoc(6, 0, 10), hier)
	require.NoError(t, err)

	// bundle_setup plus the chain 1 -> 4 -> 6; location 5 is off-drill.
	assert.Equal(t, 4, rg.Len())

	global := globalRecipeID(t)
	root, ok := rg.Root()
	require.True(t, ok)
	assert.Equal(t, global, root)

	edges := rg.Edges()
	assert.Len(t, edges, 3)
	assert.Contains(t, edges, [2]identity.RecipeID{global, estimateID(t, 1, identity.Both)})
	assert.Contains(t, edges, [2]identity.RecipeID{estimateID(t, 1, identity.Both), estimateID(t, 4, identity.Both)})
	assert.Contains(t, edges, [2]identity.RecipeID{estimateID(t, 4, identity.Both), estimateID(t, 6, identity.Both)})
}

func TestBuildRecipeGraphFullCascade(t *testing.T) {
	hier := testLocations(t)
	rg, err := BuildRecipeGraph(context.Background(), testDoc(settings.FullCascade, 0, 10), hier)
	require.NoError(t, err)

	// bundle_setup plus one both-sex estimate per location.
	assert.Equal(t, 5, rg.Len())
	edges := rg.Edges()
	assert.Contains(t, edges, [2]identity.RecipeID{estimateID(t, 1, identity.Both), estimateID(t, 5, identity.Both)})
}

func TestBuildRecipeGraphSexSplit(t *testing.T) {
	hier := testLocations(t)
	rg, err := BuildRecipeGraph(context.Background(), testDoc(settings.FullCascade, 2, 10), hier)
	require.NoError(t, err)

	// Locations at level 2 split into male and female recipes; everything
	// above stays both.
	male := estimateID(t, 6, identity.Male)
	female := estimateID(t, 6, identity.Female)
	_, maleOK := rg.JobList(male)
	_, femaleOK := rg.JobList(female)
	assert.True(t, maleOK)
	assert.True(t, femaleOK)
	// One global recipe, both-sex recipes for locations 1, 4, 5, and two
	// sexed recipes for location 6.
	assert.Equal(t, 6, rg.Len())

	// At the split boundary both sexed recipes depend on the parent's
	// both-sex recipe.
	parent := estimateID(t, 4, identity.Both)
	edges := rg.Edges()
	assert.Contains(t, edges, [2]identity.RecipeID{parent, male})
	assert.Contains(t, edges, [2]identity.RecipeID{parent, female})
}

func TestEstimateJobList(t *testing.T) {
	hier := testLocations(t)
	rg, err := BuildRecipeGraph(context.Background(), testDoc(6, 0, 250), hier)
	require.NoError(t, err)

	jobs, ok := rg.JobList(estimateID(t, 4, identity.Both))
	require.True(t, ok)
	require.Len(t, jobs, 4)

	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name()
	}
	assert.Equal(t, []string{jobPrepareData, jobFit, jobDraws, jobSummarize}, names)

	t.Run("draws multiplicity is the sample count", func(t *testing.T) {
		assert.Equal(t, 250, jobs[2].Multiplicity())
		for _, other := range []job.Job{jobs[0], jobs[1], jobs[3]} {
			assert.Equal(t, 1, other.Multiplicity())
		}
	})

	t.Run("resource declarations are static per kind", func(t *testing.T) {
		fit := jobs[1]
		assert.Equal(t, 16.0, fit.MemoryGB())
		assert.Equal(t, 2, fit.Threads())
	})

	t.Run("non-root fit declares the parent fit input", func(t *testing.T) {
		fit := jobs[1]
		assert.Contains(t, fit.Inputs(), "parent_fit")
		assert.Contains(t, fit.Inputs(), "data")
	})

	t.Run("root fit has no parent fit input", func(t *testing.T) {
		rootJobs, ok := rg.JobList(estimateID(t, 1, identity.Both))
		require.True(t, ok)
		assert.NotContains(t, rootJobs[1].Inputs(), "parent_fit")
	})
}

func TestPlanCompiles(t *testing.T) {
	hier := testLocations(t)
	rg, err := BuildRecipeGraph(context.Background(), testDoc(settings.FullCascade, 2, 10), hier)
	require.NoError(t, err)

	jg, err := jobgraph.Compile(context.Background(), rg)
	require.NoError(t, err)

	// One bundle_setup job plus four jobs per estimate recipe.
	assert.Equal(t, 1+4*5, jg.Len())

	root, ok := jg.Root()
	require.True(t, ok)
	assert.Equal(t, identity.NewJobID(globalRecipeID(t), "bundle_setup"), root)
}

func TestBuildRecipeGraphDrillUnknownLocation(t *testing.T) {
	hier := testLocations(t)
	_, err := BuildRecipeGraph(context.Background(), testDoc(99, 0, 10), hier)
	assert.ErrorContains(t, err, "not in hierarchy")
}
