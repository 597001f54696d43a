package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmetrics/cascade/internal/execctx"
)

func TestFileValidate(t *testing.T) {
	ec := execctx.New(t.TempDir())
	f := NewFile("5_estimate_both/fit.db")

	t.Run("missing file reports a reason", func(t *testing.T) {
		reason := f.Validate(context.Background(), ec)
		assert.Contains(t, reason, "does not exist")
		assert.Contains(t, reason, "5_estimate_both/fit.db")
	})

	t.Run("empty file reports a reason", func(t *testing.T) {
		path := f.Path(ec)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		reason := f.Validate(context.Background(), ec)
		assert.Contains(t, reason, "is empty")
	})

	t.Run("non-empty file validates", func(t *testing.T) {
		path := f.Path(ec)
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		assert.Empty(t, f.Validate(context.Background(), ec))
	})
}

func TestFileMockSatisfiesValidate(t *testing.T) {
	ec := execctx.New(t.TempDir())
	f := NewFile("deep/nested/draws.csv")

	require.NotEmpty(t, f.Validate(context.Background(), ec))
	require.NoError(t, f.Mock(context.Background(), ec))
	assert.Empty(t, f.Validate(context.Background(), ec))
}

func TestPathsAreRunScoped(t *testing.T) {
	base := t.TempDir()
	first := execctx.New(base)
	second := execctx.New(base)
	f := NewFile("bundle/bundle.csv")

	require.NoError(t, f.Mock(context.Background(), first))
	assert.Empty(t, f.Validate(context.Background(), first))
	assert.NotEmpty(t, f.Validate(context.Background(), second),
		"two runs against the same base directory must not share artifacts")
}
