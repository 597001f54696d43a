// Package artifact implements file-backed input and output entities. Jobs
// declare these to describe what they read and write; validation and mock
// materialization give the graph machinery a readiness check that works
// without running any real computation.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/healthmetrics/cascade/internal/execctx"
)

// mockContents is what Mock writes so a placeholder is visibly not real data.
var mockContents = []byte("mock\n")

// File is a single artifact at a run-relative path.
type File struct {
	// RelPath locates the file under the execution context's run directory.
	RelPath string
}

// NewFile declares a file artifact at a run-relative path.
func NewFile(relPath string) *File {
	return &File{RelPath: relPath}
}

// Path resolves the artifact to an absolute path for one run.
func (f *File) Path(ec *execctx.Context) string {
	return ec.Path(f.RelPath)
}

// Validate returns "" when the file exists and is non-empty, otherwise a
// description of what is wrong.
func (f *File) Validate(ctx context.Context, ec *execctx.Context) string {
	info, err := os.Stat(f.Path(ec))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("file %s does not exist", f.RelPath)
		}
		return fmt.Sprintf("file %s cannot be read: %v", f.RelPath, err)
	}
	if info.IsDir() {
		return fmt.Sprintf("file %s is a directory", f.RelPath)
	}
	if info.Size() == 0 {
		return fmt.Sprintf("file %s is empty", f.RelPath)
	}
	return ""
}

// Mock writes a placeholder that satisfies Validate, creating parent
// directories as needed.
func (f *File) Mock(ctx context.Context, ec *execctx.Context) error {
	path := f.Path(ec)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mocking %s: %w", f.RelPath, err)
	}
	if err := os.WriteFile(path, mockContents, 0o644); err != nil {
		return fmt.Errorf("mocking %s: %w", f.RelPath, err)
	}
	return nil
}
