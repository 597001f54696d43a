// Package plan builds the recipe graph for a run from the settings
// document and the location hierarchy. It also defines the job kinds a
// recipe is made of. The numerical model itself lives outside this module;
// each kind's Run materializes the artifacts the rest of the graph keys on
// and declares the resources the real computation needs.
package plan

import (
	"context"
	"fmt"

	"github.com/healthmetrics/cascade/internal/artifact"
	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/job"
	"github.com/healthmetrics/cascade/internal/settings"
)

// Job names within an estimate recipe, in execution order.
const (
	jobPrepareData = "prepare_data"
	jobFit         = "fit"
	jobDraws       = "compute_draws_from_parent_fit"
	jobSummarize   = "summarize"
)

// bundleFile is the one artifact shared by every location's estimation.
var bundleFile = artifact.NewFile("bundle/bundle.csv")

func recipeFile(recipe identity.RecipeID, name string) *artifact.File {
	return artifact.NewFile(fmt.Sprintf("%s/%s", recipe, name))
}

// bundleSetupJob stages the measurement bundle once for the whole run.
type bundleSetupJob struct {
	job.Base
}

func newBundleSetupJob(recipe identity.RecipeID, local settings.Local) *bundleSetupJob {
	return &bundleSetupJob{job.Base{
		JobName:  "bundle_setup",
		RecipeID: recipe,
		Local:    local,
		In:       map[string]job.Entity{},
		Out:      map[string]job.Entity{"bundle": bundleFile},
		MemGB:    4,
		NThreads: 1,
	}}
}

func (j *bundleSetupJob) Run(ctx context.Context, ec *execctx.Context, taskIndex int) error {
	ctxlog.FromContext(ctx).Info("Running job.", "job", j.Identifier().String(), "task", taskIndex)
	return j.MaterializeOutputs(ctx, ec)
}

// prepareDataJob subsets the bundle to one location and sex.
type prepareDataJob struct {
	job.Base
}

func newPrepareDataJob(recipe identity.RecipeID, local settings.Local) *prepareDataJob {
	return &prepareDataJob{job.Base{
		JobName:  jobPrepareData,
		RecipeID: recipe,
		Local:    local,
		In:       map[string]job.Entity{"bundle": bundleFile},
		Out:      map[string]job.Entity{"data": recipeFile(recipe, "data.csv")},
		MemGB:    8,
		NThreads: 1,
	}}
}

func (j *prepareDataJob) Run(ctx context.Context, ec *execctx.Context, taskIndex int) error {
	ctxlog.FromContext(ctx).Info("Running job.", "job", j.Identifier().String(), "task", taskIndex)
	return j.MaterializeOutputs(ctx, ec)
}

// fitJob estimates rates for one location, primed by the parent's fit when
// there is one.
type fitJob struct {
	job.Base
}

func newFitJob(recipe identity.RecipeID, parent *identity.RecipeID, local settings.Local) *fitJob {
	inputs := map[string]job.Entity{"data": recipeFile(recipe, "data.csv")}
	if parent != nil {
		inputs["parent_fit"] = recipeFile(*parent, "fit.db")
	}
	return &fitJob{job.Base{
		JobName:  jobFit,
		RecipeID: recipe,
		Local:    local,
		In:       inputs,
		Out:      map[string]job.Entity{"fit": recipeFile(recipe, "fit.db")},
		MemGB:    16,
		NThreads: 2,
	}}
}

func (j *fitJob) Run(ctx context.Context, ec *execctx.Context, taskIndex int) error {
	ctxlog.FromContext(ctx).Info("Running job.", "job", j.Identifier().String(), "task", taskIndex)
	return j.MaterializeOutputs(ctx, ec)
}

// drawsJob samples the fitted posterior. Its multiplicity is the sample
// count, so one task per draw.
type drawsJob struct {
	job.Base
}

func newDrawsJob(recipe identity.RecipeID, local settings.Local) *drawsJob {
	return &drawsJob{job.Base{
		JobName:  jobDraws,
		RecipeID: recipe,
		Local:    local,
		In:       map[string]job.Entity{"fit": recipeFile(recipe, "fit.db")},
		Out:      map[string]job.Entity{"draws": recipeFile(recipe, "draws.csv")},
		Mult:     local.SampleCount,
		MemGB:    4,
		NThreads: 1,
	}}
}

func (j *drawsJob) Run(ctx context.Context, ec *execctx.Context, taskIndex int) error {
	ctxlog.FromContext(ctx).Info("Running job.", "job", j.Identifier().String(), "task", taskIndex)
	return j.MaterializeOutputs(ctx, ec)
}

// summarizeJob collapses draws into the quantiles the policies ask for.
type summarizeJob struct {
	job.Base
}

func newSummarizeJob(recipe identity.RecipeID, local settings.Local) *summarizeJob {
	return &summarizeJob{job.Base{
		JobName:  jobSummarize,
		RecipeID: recipe,
		Local:    local,
		In:       map[string]job.Entity{"draws": recipeFile(recipe, "draws.csv")},
		Out:      map[string]job.Entity{"summary": recipeFile(recipe, "summary.csv")},
		MemGB:    2,
		NThreads: 1,
	}}
}

func (j *summarizeJob) Run(ctx context.Context, ec *execctx.Context, taskIndex int) error {
	ctxlog.FromContext(ctx).Info("Running job.", "job", j.Identifier().String(), "task", taskIndex)
	return j.MaterializeOutputs(ctx, ec)
}

// estimateJobs is the ordered job list of one estimate recipe.
func estimateJobs(recipe identity.RecipeID, parent *identity.RecipeID, local settings.Local) []job.Job {
	return []job.Job{
		newPrepareDataJob(recipe, local),
		newFitJob(recipe, parent, local),
		newDrawsJob(recipe, local),
		newSummarizeJob(recipe, local),
	}
}
