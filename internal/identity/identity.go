// Package identity defines the value types that name units of work in a
// cascade run. A recipe is the set of steps executed for one location and
// sex; a job is one step within a recipe. Both identifiers are small
// comparable structs so they can serve directly as graph-node and map keys.
package identity

import (
	"fmt"
	"strconv"
)

// Sex is the sex split a recipe operates on.
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
	Both   Sex = "both"
)

// Valid reports whether s is one of the three allowed tokens.
func (s Sex) Valid() bool {
	switch s {
	case Male, Female, Both:
		return true
	}
	return false
}

// ParseSex converts a raw string into a Sex, or fails with a ValidationError.
func ParseSex(raw string) (Sex, error) {
	s := Sex(raw)
	if !s.Valid() {
		return "", &ValidationError{Field: "sex", Value: raw, Reason: "must be one of male, female, both"}
	}
	return s, nil
}

// ValidationError reports an identifier field that violates its invariant.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// RecipeID identifies a recipe within the graph of recipes. LocationID 0
// means the recipe is associated with no location, or all locations, such
// as aggregation at the start or end of a whole model.
type RecipeID struct {
	// LocationID is a location identifier from the hierarchy.
	LocationID int
	// Recipe names the list of jobs to do at this location.
	Recipe string
	// Sex indicates which sex split this recipe covers.
	Sex Sex
}

// NewRecipeID builds a RecipeID, rejecting a sex outside the allowed tokens
// and a recipe name that collides with a sex token. The collision check
// guards against swapped arguments.
func NewRecipeID(locationID int, recipe string, sex Sex) (RecipeID, error) {
	if !sex.Valid() {
		return RecipeID{}, &ValidationError{Field: "sex", Value: string(sex), Reason: "must be one of male, female, both"}
	}
	if Sex(recipe).Valid() {
		return RecipeID{}, &ValidationError{Field: "recipe", Value: recipe, Reason: "recipe name collides with a sex token"}
	}
	return RecipeID{LocationID: locationID, Recipe: recipe, Sex: sex}, nil
}

func (r RecipeID) String() string {
	return fmt.Sprintf("%d_%s_%s", r.LocationID, r.Recipe, r.Sex)
}

// JobID identifies a single job within a recipe. It must be unique across
// an entire run; the job graph's node collection enforces that.
type JobID struct {
	RecipeID
	// Name is the job's name within its recipe.
	Name string
}

// NewJobID extends a RecipeID with a job name.
func NewJobID(recipe RecipeID, name string) JobID {
	return JobID{RecipeID: recipe, Name: name}
}

func (j JobID) String() string {
	return fmt.Sprintf("%d_%s_%s_%s", j.LocationID, j.Recipe, j.Sex, j.Name)
}

// Arguments returns the command-line argument vector that selects exactly
// this job when re-invoking a run out-of-process.
func (j JobID) Arguments() []string {
	return []string{
		"--location-id", strconv.Itoa(j.LocationID),
		"--recipe", j.Recipe,
		"--sex", string(j.Sex),
		"--name", j.Name,
	}
}
