// Package execctx carries the run-time environment a job needs to locate
// its files. The graph machinery treats it as an opaque handle and only
// threads it through to entity validation and execution.
package execctx

import (
	"path/filepath"

	"github.com/google/uuid"

	"github.com/healthmetrics/cascade/internal/identity"
)

// Context describes where one run reads and writes its artifacts. Every run
// gets a fresh UUID so that two runs against the same base directory never
// collide.
type Context struct {
	// BaseDir is the directory under which all run artifacts live.
	BaseDir string
	// RunID distinguishes this run from every other run.
	RunID uuid.UUID
}

// New creates a Context rooted at baseDir with a fresh run ID.
func New(baseDir string) *Context {
	return &Context{BaseDir: baseDir, RunID: uuid.New()}
}

// Attach creates a Context for a run that already exists, so a later
// invocation can read the artifacts an earlier one produced. Re-running a
// single job out-of-process depends on this.
func Attach(baseDir string, runID uuid.UUID) *Context {
	return &Context{BaseDir: baseDir, RunID: runID}
}

// RunDir is the directory holding every artifact of this run.
func (c *Context) RunDir() string {
	return filepath.Join(c.BaseDir, c.RunID.String())
}

// Path resolves a run-relative artifact path to an absolute one.
func (c *Context) Path(rel string) string {
	return filepath.Join(c.RunDir(), rel)
}

// JobDir is the scratch directory belonging to a single job.
func (c *Context) JobDir(id identity.JobID) string {
	return filepath.Join(c.RunDir(), id.String())
}
