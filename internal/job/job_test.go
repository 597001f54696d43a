package job

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/identity"
)

// fakeEntity is an input/output stand-in that reports a fixed validation
// reason and counts Mock invocations.
type fakeEntity struct {
	reason    string
	mockCalls int
}

func (f *fakeEntity) Validate(ctx context.Context, ec *execctx.Context) string {
	return f.reason
}

func (f *fakeEntity) Mock(ctx context.Context, ec *execctx.Context) error {
	f.mockCalls++
	return nil
}

type testJob struct {
	Base
}

func (j *testJob) Run(ctx context.Context, ec *execctx.Context, taskIndex int) error {
	return nil
}

func newTestJob(t *testing.T, inputs, outputs map[string]Entity) *testJob {
	t.Helper()
	recipe, err := identity.NewRecipeID(3, "estimate", identity.Both)
	require.NoError(t, err)
	return &testJob{Base{
		JobName:  "fit",
		RecipeID: recipe,
		In:       inputs,
		Out:      outputs,
		MemGB:    16,
		NThreads: 2,
	}}
}

func TestIdentifierDerivation(t *testing.T) {
	j := newTestJob(t, nil, nil)
	assert.Equal(t, "3_estimate_both_fit", j.Identifier().String())
	assert.Equal(t, j.Recipe(), j.Identifier().RecipeID)
}

func TestMultiplicityDefaultsToOne(t *testing.T) {
	j := newTestJob(t, nil, nil)
	assert.Equal(t, 1, j.Multiplicity())

	j.Mult = 250
	assert.Equal(t, 250, j.Multiplicity())
}

func TestInputMissing(t *testing.T) {
	ec := execctx.New(t.TempDir())
	ready := &fakeEntity{}
	missing := &fakeEntity{reason: "file missing"}
	j := newTestJob(t, map[string]Entity{"data": ready, "parent_fit": missing}, nil)

	got := j.InputMissing(context.Background(), ec)
	assert.Equal(t, map[string]string{"parent_fit": "file missing"}, got)

	t.Run("empty when all inputs validate", func(t *testing.T) {
		j := newTestJob(t, map[string]Entity{"data": &fakeEntity{}}, nil)
		assert.Empty(t, j.InputMissing(context.Background(), ec))
	})
}

func TestOutputMissing(t *testing.T) {
	ec := execctx.New(t.TempDir())
	j := newTestJob(t, nil, map[string]Entity{"fit": &fakeEntity{reason: "not written"}})

	got := j.OutputMissing(context.Background(), ec)
	assert.Equal(t, map[string]string{"fit": "not written"}, got)
}

func TestMockRun(t *testing.T) {
	t.Run("missing input fails and mocks nothing", func(t *testing.T) {
		ec := execctx.New(t.TempDir())
		output := &fakeEntity{}
		j := newTestJob(t,
			map[string]Entity{"data": &fakeEntity{reason: "file missing"}},
			map[string]Entity{"fit": output},
		)

		err := j.MockRun(context.Background(), ec, true)
		require.Error(t, err)

		var notReady *NotReadyError
		require.ErrorAs(t, err, &notReady)
		assert.Equal(t, j.Identifier(), notReady.Job)
		assert.Equal(t, map[string]string{"data": "file missing"}, notReady.Missing)
		assert.Zero(t, output.mockCalls, "no outputs may be mocked when inputs are missing")
	})

	t.Run("satisfied inputs mock every output once", func(t *testing.T) {
		ec := execctx.New(t.TempDir())
		fit := &fakeEntity{}
		draws := &fakeEntity{}
		j := newTestJob(t,
			map[string]Entity{"data": &fakeEntity{}},
			map[string]Entity{"fit": fit, "draws": draws},
		)

		require.NoError(t, j.MockRun(context.Background(), ec, true))
		assert.Equal(t, 1, fit.mockCalls)
		assert.Equal(t, 1, draws.mockCalls)
	})

	t.Run("checkInputs false ignores input state", func(t *testing.T) {
		ec := execctx.New(t.TempDir())
		output := &fakeEntity{}
		j := newTestJob(t,
			map[string]Entity{"data": &fakeEntity{reason: "file missing"}},
			map[string]Entity{"fit": output},
		)

		require.NoError(t, j.MockRun(context.Background(), ec, false))
		assert.Equal(t, 1, output.mockCalls)
	})
}

func TestNotReadyErrorMessage(t *testing.T) {
	recipe, err := identity.NewRecipeID(1, "estimate", identity.Male)
	require.NoError(t, err)
	notReady := &NotReadyError{
		Job:     identity.NewJobID(recipe, "fit"),
		Missing: map[string]string{"data": "file missing", "bundle": "file empty"},
	}

	// Input names are sorted so the message is deterministic.
	assert.Equal(t,
		"job 1_estimate_male_fit not ready, missing inputs: bundle: file empty; data: file missing",
		notReady.Error())
}
