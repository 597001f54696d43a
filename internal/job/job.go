// Package job defines the contract every unit of work in the cascade
// satisfies: identity, declared inputs and outputs, resource requests, and
// the readiness and mock-execution surface an execution engine drives.
package job

import (
	"context"

	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/identity"
)

// Entity is one declared input or output of a job. Validation never fails
// with an error; it describes what is missing so that a caller can
// aggregate many problems in a single pass.
type Entity interface {
	// Validate returns "" when the entity is present and well-formed, or a
	// description of what is missing or wrong.
	Validate(ctx context.Context, ec *execctx.Context) string
	// Mock materializes a placeholder artifact that satisfies Validate,
	// without doing any real computation.
	Mock(ctx context.Context, ec *execctx.Context) error
}

// Job describes one unit of work within a recipe. A job stands for
// Multiplicity parallel task instances; each instance runs the same logic
// against a distinct task index. Implementations hold no mutable run state
// beyond what is assigned at construction.
type Job interface {
	Name() string
	Recipe() identity.RecipeID
	Identifier() identity.JobID
	Inputs() map[string]Entity
	Outputs() map[string]Entity
	// Multiplicity is the number of parallel task instances this job node
	// stands for, at least 1.
	Multiplicity() int
	// MemoryGB declares how many gigabytes of memory to request per task.
	MemoryGB() float64
	// Threads declares how many threads of execution to request per task.
	Threads() int
	// Run executes one task instance. It must be safe to re-invoke for
	// jobs with multiplicity above 1.
	Run(ctx context.Context, ec *execctx.Context, taskIndex int) error
	// MockRun materializes placeholder outputs instead of computing them,
	// optionally checking inputs first. It fails with *NotReadyError when
	// checkInputs is set and any input is missing.
	MockRun(ctx context.Context, ec *execctx.Context, checkInputs bool) error
}

// Base carries the shared state and behavior of every job kind. Kinds
// embed it and supply their own Run.
type Base struct {
	JobName  string
	RecipeID identity.RecipeID
	// Local holds this recipe's settings. Jobs pass it through unexamined.
	Local any
	In    map[string]Entity
	Out   map[string]Entity
	// Mult is the task-instance count; zero means 1.
	Mult     int
	MemGB    float64
	NThreads int
}

func (b *Base) Name() string               { return b.JobName }
func (b *Base) Recipe() identity.RecipeID  { return b.RecipeID }
func (b *Base) Inputs() map[string]Entity  { return b.In }
func (b *Base) Outputs() map[string]Entity { return b.Out }

func (b *Base) Identifier() identity.JobID {
	return identity.NewJobID(b.RecipeID, b.JobName)
}

func (b *Base) Multiplicity() int {
	if b.Mult < 1 {
		return 1
	}
	return b.Mult
}

func (b *Base) MemoryGB() float64 { return b.MemGB }
func (b *Base) Threads() int      { return b.NThreads }

// InputMissing reports, for every declared input that fails validation,
// the reason it is not ready. An empty map means the job may start.
func (b *Base) InputMissing(ctx context.Context, ec *execctx.Context) map[string]string {
	return entityMissing(ctx, ec, b.In)
}

// OutputMissing reports every declared output that does not yet exist.
func (b *Base) OutputMissing(ctx context.Context, ec *execctx.Context) map[string]string {
	return entityMissing(ctx, ec, b.Out)
}

func entityMissing(ctx context.Context, ec *execctx.Context, entities map[string]Entity) map[string]string {
	notReady := make(map[string]string)
	for name, entity := range entities {
		if reason := entity.Validate(ctx, ec); reason != "" {
			notReady[name] = reason
		}
	}
	return notReady
}

// MockRun materializes a placeholder for every declared output so that
// downstream readiness checks pass without real computation. With
// checkInputs set, it first verifies the inputs and fails with a
// *NotReadyError before touching any output.
func (b *Base) MockRun(ctx context.Context, ec *execctx.Context, checkInputs bool) error {
	logger := ctxlog.FromContext(ctx)
	if checkInputs {
		if missing := b.InputMissing(ctx, ec); len(missing) > 0 {
			logger.Info("Job inputs missing.", "job", b.Identifier().String(), "missing", missing)
			return &NotReadyError{Job: b.Identifier(), Missing: missing}
		}
	}
	for name, output := range b.Out {
		logger.Debug("Mocking output.", "job", b.Identifier().String(), "output", name)
		if err := output.Mock(ctx, ec); err != nil {
			return err
		}
	}
	return nil
}

// MaterializeOutputs writes a placeholder for every declared output. Job
// kinds whose real computation lives outside this module call it from Run
// so the artifact chain stays intact end to end.
func (b *Base) MaterializeOutputs(ctx context.Context, ec *execctx.Context) error {
	for _, output := range b.Out {
		if err := output.Mock(ctx, ec); err != nil {
			return err
		}
	}
	return nil
}
