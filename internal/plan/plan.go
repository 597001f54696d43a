package plan

import (
	"context"
	"fmt"

	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/job"
	"github.com/healthmetrics/cascade/internal/jobgraph"
	"github.com/healthmetrics/cascade/internal/locations"
	"github.com/healthmetrics/cascade/internal/settings"
)

const (
	recipeBundleSetup = "bundle_setup"
	recipeEstimate    = "estimate"
)

// BuildRecipeGraph lays out the recipes for one run. A bundle_setup recipe
// at location 0 is the root; below it, one estimate recipe per location,
// walking the hierarchy top-down. Estimation runs on both sexes together
// above the split level and separately per sex at the split level and
// below. With drill_location set, only the chain from the hierarchy root
// down to that location is planned.
func BuildRecipeGraph(ctx context.Context, doc *settings.Document, hier *locations.Hierarchy) (*jobgraph.RecipeGraph, error) {
	var order []int
	if doc.Model.DrillLocation != settings.FullCascade {
		chain, err := hier.Drill(doc.Model.DrillLocation)
		if err != nil {
			return nil, err
		}
		order = chain
	} else {
		order = hier.All()
	}

	// Locations at or below the split level estimate each sex separately.
	sexed := make(map[int]bool)
	if doc.Model.SplitSexLevel > 0 {
		for _, loc := range hier.DescendantsTo(doc.Model.SplitSexLevel) {
			sexed[loc] = true
		}
	}

	rg := jobgraph.NewRecipeGraph()

	globalID, err := identity.NewRecipeID(0, recipeBundleSetup, identity.Both)
	if err != nil {
		return nil, err
	}
	globalLocal := settings.Local{SampleCount: doc.Model.SampleCount, Policies: *doc.Policies}
	if err := rg.AddRecipe(globalID, []job.Job{newBundleSetupJob(globalID, globalLocal)}); err != nil {
		return nil, err
	}
	if err := rg.SetRoot(globalID); err != nil {
		return nil, err
	}

	for _, loc := range order {
		for _, sex := range sexesFor(sexed, loc) {
			recipeID, err := identity.NewRecipeID(loc, recipeEstimate, sex)
			if err != nil {
				return nil, err
			}

			parentID, err := parentRecipe(hier, loc, sex, sexed, globalID)
			if err != nil {
				return nil, err
			}

			local := settings.Local{
				Location:    loc,
				Sex:         sex,
				SampleCount: doc.Model.SampleCount,
				Policies:    *doc.Policies,
			}
			var fitParent *identity.RecipeID
			if parentID != globalID {
				local.ParentLocation = parentID.LocationID
				fitParent = &parentID
			}

			if err := rg.AddRecipe(recipeID, estimateJobs(recipeID, fitParent, local)); err != nil {
				return nil, err
			}
			if err := rg.AddDependency(parentID, recipeID); err != nil {
				return nil, err
			}
		}
	}

	if err := rg.DetectCycles(); err != nil {
		return nil, fmt.Errorf("recipe graph: %w", err)
	}
	return rg, nil
}

// sexesFor decides which sex splits a location estimates.
func sexesFor(sexed map[int]bool, loc int) []identity.Sex {
	if sexed[loc] {
		return []identity.Sex{identity.Male, identity.Female}
	}
	return []identity.Sex{identity.Both}
}

// parentRecipe names the recipe an estimate recipe depends on: the global
// bundle_setup for the hierarchy root, otherwise the parent location's
// estimate. At the split boundary a sexed recipe depends on the parent's
// both-sex recipe; below it, on the parent recipe of the same sex.
func parentRecipe(hier *locations.Hierarchy, loc int, sex identity.Sex, sexed map[int]bool, globalID identity.RecipeID) (identity.RecipeID, error) {
	parentLoc, ok := hier.Parent(loc)
	if !ok {
		return globalID, nil
	}

	parentSex := identity.Both
	if sexed[parentLoc] {
		parentSex = sex
	}
	return identity.NewRecipeID(parentLoc, recipeEstimate, parentSex)
}
