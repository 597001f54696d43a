// Package executor runs a compiled job graph in-process with a pool of
// workers. It honors the graph's contract: a job starts only after every
// predecessor has completed and produced outputs that validate, the tasks
// of a multiplicity>1 job run with no ordering among themselves, and jobs
// with no path between them may run concurrently.
package executor

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/jobgraph"
)

// state tracks one job through its run.
type state int

const (
	pending state = iota
	running
	done
	failed
	skipped
)

// Executor drains a job graph with a fixed pool of workers.
type Executor struct {
	graph   *jobgraph.JobGraph
	ec      *execctx.Context
	workers int
	// mock selects the dry-run path: placeholder outputs instead of Run.
	mock bool

	mutex     sync.Mutex
	states    map[identity.JobID]state
	remaining map[identity.JobID]int
	errs      map[identity.JobID]error
	wg        sync.WaitGroup
}

// Option adjusts how an Executor runs.
type Option func(*Executor)

// WithWorkers sets the worker-pool size.
func WithWorkers(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMockRun switches execution to the dry-run path, which materializes
// placeholder outputs and validates graph wiring without real computation.
func WithMockRun() Option {
	return func(e *Executor) { e.mock = true }
}

// New builds an executor for one graph. The execution context comes from
// the graph's attached metadata, so select or attach one before running.
func New(graph *jobgraph.JobGraph, opts ...Option) (*Executor, error) {
	if graph.Context() == nil {
		return nil, fmt.Errorf("job graph has no execution context attached")
	}
	e := &Executor{
		graph:     graph,
		ec:        graph.Context(),
		workers:   4,
		states:    make(map[identity.JobID]state),
		remaining: make(map[identity.JobID]int),
		errs:      make(map[identity.JobID]error),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run executes every job in the graph, respecting dependency edges. It
// returns an error naming the failed jobs if any job fails or is skipped.
func (e *Executor) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	ids := e.graph.Jobs()
	if len(ids) == 0 {
		logger.Warn("No jobs in graph, nothing to execute.")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	readyChan := make(chan identity.JobID, len(ids))
	for _, id := range ids {
		deps, err := e.graph.Dependencies(id)
		if err != nil {
			return err
		}
		e.states[id] = pending
		e.remaining[id] = len(deps)
		if len(deps) == 0 {
			readyChan <- id
		}
	}

	e.wg.Add(len(ids))
	for workerID := 0; workerID < e.workers; workerID++ {
		go e.worker(ctx, readyChan, cancel, workerID)
	}

	e.wg.Wait()
	close(readyChan)

	return e.report()
}

// worker is the processing loop for a single concurrent worker.
func (e *Executor) worker(ctx context.Context, readyChan chan identity.JobID, cancel context.CancelFunc, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for id := range readyChan {
		workerLogger := logger.With("workerID", workerID, "jobID", id.String())

		if ctx.Err() != nil {
			// A skipped job strands its dependents unless they are skipped
			// too: nothing will ever decrement their counters.
			if e.skip(id, ctx.Err()) {
				e.skipDependents(ctx, id, ctx.Err())
			}
			continue
		}

		workerLogger.Debug("Worker picked up job.")
		e.setState(id, running)

		err := e.runJob(ctx, id)
		if err != nil {
			workerLogger.Error("Job failed.", "error", err)
			e.fail(id, err)
			cancel()
			e.skipDependents(ctx, id, fmt.Errorf("upstream job %s failed", id))
			e.wg.Done()
			continue
		}

		workerLogger.Debug("Job succeeded.")
		e.setState(id, done)

		dependents, depErr := e.graph.Dependents(id)
		if depErr != nil {
			workerLogger.Error("Failed to get dependents for completed job.", "error", depErr)
		} else {
			for _, dependent := range dependents {
				if e.decrement(dependent) == 0 {
					workerLogger.Debug("Unlocking dependent job.", "dependentID", dependent.String())
					readyChan <- dependent
				}
			}
		}

		e.wg.Done()
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// runJob executes one job node: the mock path when dry-running, otherwise
// a readiness check followed by all of the job's task instances.
func (e *Executor) runJob(ctx context.Context, id identity.JobID) error {
	j, ok := e.graph.Job(id)
	if !ok {
		return fmt.Errorf("job not found in graph: %s", id)
	}

	if err := os.MkdirAll(e.ec.JobDir(id), 0o755); err != nil {
		return fmt.Errorf("creating scratch directory for %s: %w", id, err)
	}

	if e.mock {
		return j.MockRun(ctx, e.ec, true)
	}

	base, isBase := j.(interface {
		InputMissing(context.Context, *execctx.Context) map[string]string
	})
	if isBase {
		if missing := base.InputMissing(ctx, e.ec); len(missing) > 0 {
			return fmt.Errorf("inputs not ready for %s: %v", id, missing)
		}
	}

	// Task instances of one job are independent; run them concurrently.
	var taskWG sync.WaitGroup
	taskErrs := make([]error, j.Multiplicity())
	for task := 0; task < j.Multiplicity(); task++ {
		taskWG.Add(1)
		go func(task int) {
			defer taskWG.Done()
			taskErrs[task] = j.Run(ctx, e.ec, task)
		}(task)
	}
	taskWG.Wait()

	for task, err := range taskErrs {
		if err != nil {
			return fmt.Errorf("task %d of %d: %w", task, j.Multiplicity(), err)
		}
	}
	return nil
}

// skipDependents marks every transitive dependent of id as skipped.
func (e *Executor) skipDependents(ctx context.Context, id identity.JobID, cause error) {
	dependents, err := e.graph.Dependents(id)
	if err != nil {
		return
	}
	for _, dependent := range dependents {
		if e.skip(dependent, cause) {
			e.skipDependents(ctx, dependent, cause)
		}
	}
}

func (e *Executor) setState(id identity.JobID, s state) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.states[id] = s
}

// skip marks a pending job skipped and reports whether it did so. A job
// already running, finished, or skipped is left alone.
func (e *Executor) skip(id identity.JobID, cause error) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.states[id] != pending {
		return false
	}
	e.states[id] = skipped
	e.errs[id] = cause
	e.wg.Done()
	return true
}

func (e *Executor) fail(id identity.JobID, err error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.states[id] = failed
	e.errs[id] = err
}

func (e *Executor) decrement(id identity.JobID) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.remaining[id]--
	return e.remaining[id]
}

// report summarizes the run as a single error, or nil when every job is done.
func (e *Executor) report() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var failedCount, skippedCount int
	var first error
	for id, s := range e.states {
		switch s {
		case failed:
			failedCount++
			if first == nil {
				first = fmt.Errorf("%s: %w", id, e.errs[id])
			}
		case skipped:
			skippedCount++
		}
	}
	if failedCount == 0 && skippedCount == 0 {
		return nil
	}
	if first == nil {
		return fmt.Errorf("execution interrupted: %d skipped of %d jobs", skippedCount, len(e.states))
	}
	return fmt.Errorf("execution failed: %d failed, %d skipped of %d jobs, first failure %w",
		failedCount, skippedCount, len(e.states), first)
}
