package jobgraph

import (
	"fmt"

	"github.com/healthmetrics/cascade/internal/identity"
)

// MalformedRecipeError reports a recipe node that cannot be compiled. A
// recipe must contain at least one job; compilation aborts before any part
// of the job graph is built.
type MalformedRecipeError struct {
	Recipe identity.RecipeID
}

func (e *MalformedRecipeError) Error() string {
	return fmt.Sprintf("recipe %s doesn't have any jobs", e.Recipe)
}

// CompileError reports a structural failure of the whole compilation, such
// as a recipe graph without a usable root. It is fatal; there is no
// partially built graph to salvage.
type CompileError struct {
	Reason string
}

func (e *CompileError) Error() string {
	return "job graph compilation failed: " + e.Reason
}
