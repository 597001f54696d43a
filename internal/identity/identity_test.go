package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecipeID(t *testing.T) {
	t.Run("accepts valid fields", func(t *testing.T) {
		r, err := NewRecipeID(6, "estimate", Female)
		require.NoError(t, err)
		assert.Equal(t, 6, r.LocationID)
		assert.Equal(t, "estimate", r.Recipe)
		assert.Equal(t, Female, r.Sex)
	})

	t.Run("rejects unknown sex token", func(t *testing.T) {
		_, err := NewRecipeID(6, "estimate", Sex("unknown"))
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "sex", verr.Field)
	})

	t.Run("rejects recipe colliding with sex token", func(t *testing.T) {
		// Guards against swapped arguments, e.g. NewRecipeID(6, "male", ...).
		_, err := NewRecipeID(6, "male", Male)
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "recipe", verr.Field)
	})
}

func TestParseSex(t *testing.T) {
	for _, valid := range []string{"male", "female", "both"} {
		s, err := ParseSex(valid)
		require.NoError(t, err)
		assert.Equal(t, Sex(valid), s)
	}

	_, err := ParseSex("unknown")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestJobIDEquality(t *testing.T) {
	recipe, err := NewRecipeID(1, "estimate", Both)
	require.NoError(t, err)

	a := NewJobID(recipe, "fit")
	b := NewJobID(recipe, "fit")
	assert.Equal(t, a, b)

	// Comparable structs hash identically as map keys.
	seen := map[JobID]int{a: 1}
	seen[b]++
	assert.Len(t, seen, 1)
	assert.Equal(t, 2, seen[a])

	t.Run("differing in any one field makes them unequal", func(t *testing.T) {
		otherLoc := a
		otherLoc.LocationID = 2
		otherRecipe := a
		otherRecipe.Recipe = "aggregate"
		otherSex := a
		otherSex.Sex = Male
		otherName := a
		otherName.Name = "draws"

		for _, other := range []JobID{otherLoc, otherRecipe, otherSex, otherName} {
			assert.NotEqual(t, a, other)
		}
	})
}

func TestJobIDString(t *testing.T) {
	recipe, err := NewRecipeID(101, "estimate", Male)
	require.NoError(t, err)
	id := NewJobID(recipe, "fit")

	assert.Equal(t, "101_estimate_male_fit", id.String())
	assert.Equal(t, "101_estimate_male", id.RecipeID.String())
}

func TestJobIDArguments(t *testing.T) {
	recipe, err := NewRecipeID(42, "estimate", Both)
	require.NoError(t, err)
	id := NewJobID(recipe, "summarize")

	assert.Equal(t, []string{
		"--location-id", "42",
		"--recipe", "estimate",
		"--sex", "both",
		"--name", "summarize",
	}, id.Arguments())
}
