package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormResponses(t *testing.T) {
	r := ParseFormResponses(map[string]any{
		"date_of_birth":       "1999-12-31",
		"experience_years":    "3.5",
		"previous_employers":  "A\r\nB\n\nC",
		"criminal_background": true,
		"drug_test_result":    " Negative ",
		"cpr":                 "",
	})

	require.Empty(t, r.Errors)
	require.NotNil(t, r.DateOfBirth)
	assert.Equal(t, 1999, r.DateOfBirth.Year())
	require.NotNil(t, r.ExperienceYears)
	assert.Equal(t, 3.5, *r.ExperienceYears)
	assert.Equal(t, []string{"A", "B", "C"}, r.PreviousEmployers)
	assert.Equal(t, Yes, *r.CriminalBackground)
	assert.Equal(t, TestNegative, *r.DrugTestResult)

	assert.False(t, r.Has("cpr"), "blank answers count as absent")
	assert.False(t, r.Truthy("cpr"))
}

func TestParseFormResponses_Errors(t *testing.T) {
	r := ParseFormResponses(map[string]any{
		"date_of_birth":      "31/12/1999",
		"experience_years":   map[string]any{"value": 3},
		"previous_employers": float64(2),
		"drug_test_result":   "inconclusive",
	})

	assert.Error(t, r.Err("date_of_birth"))
	assert.Error(t, r.Err("experience_years"))
	assert.Error(t, r.Err("previous_employers"))
	assert.Error(t, r.Err("drug_test_result"))
	assert.ErrorIs(t, r.Err("criminal_background"), errMissing)

	assert.Nil(t, r.DateOfBirth)
	assert.Nil(t, r.ExperienceYears)
	assert.Nil(t, r.DrugTestResult)
}

func TestParseFormResponses_Nil(t *testing.T) {
	r := ParseFormResponses(nil)
	assert.Empty(t, r.Errors)
	assert.False(t, r.Has("anything"))
}
