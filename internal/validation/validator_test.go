package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/geo-format-converter/internal/types"
)

func TestRecord(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Record(types.Record{Name: "ok", Latitude: 40, Longitude: -74}))

	ve := Record(types.Record{Name: "north", Latitude: 91, Longitude: 0})
	require.NotNil(t, ve)
	assert.Equal(t, "latitude", ve.Field)
	assert.Equal(t, "range", ve.Rule)
	assert.Equal(t, SeverityError, ve.Severity)

	ve = Record(types.Record{Latitude: 0, Longitude: math.NaN()})
	require.NotNil(t, ve)
	assert.Equal(t, "longitude", ve.Field)

	// Callers wrap the result as an error and unwrap it again.
	var err error = &types.SerializeError{Format: types.FormatKML, Field: ve.Field, Err: ve}
	var target *ValidationError
	require.ErrorAs(t, err, &target)
	assert.Same(t, ve, target)
}

func TestValidateAll(t *testing.T) {
	t.Parallel()

	c := types.Collection{
		{Name: "A", Latitude: 1, Longitude: 2},
		{Name: "", Latitude: 3, Longitude: 4},
		{Name: "A", Latitude: 1, Longitude: 2},
		{Name: "Peak", Latitude: 5, Longitude: 6, Attributes: map[string]string{"altitude": "high"}},
		{Name: "Bad", Latitude: 95, Longitude: 6},
	}

	result := NewValidator().ValidateAll(c)

	assert.False(t, result.IsValid)
	assert.Equal(t, 5, result.RecordsValidated)
	assert.Equal(t, 1, result.ErrorCount)
	assert.Equal(t, 3, result.WarningCount)

	var rules []string
	for _, e := range result.Errors {
		rules = append(rules, e.Rule)
	}
	assert.Equal(t, []string{"required", "duplicate", "numeric", "range"}, rules)
}

func TestValidateAllOptions(t *testing.T) {
	t.Parallel()

	c := types.Collection{{Latitude: 1, Longitude: 1}, {Latitude: 99, Longitude: 1}, {Latitude: 99, Longitude: 2}}

	strict := NewValidatorWithOptions(ValidationOptions{RequireName: true, StopOnFirstError: true})
	result := strict.ValidateAll(c)
	assert.False(t, result.IsValid)
	assert.Equal(t, 1, result.ErrorCount)

	warn := NewValidatorWithOptions(ValidationOptions{TreatWarningsAsErrors: true})
	result = warn.ValidateAll(types.Collection{{Latitude: 1, Longitude: 1}})
	assert.False(t, result.IsValid)
	assert.Equal(t, 0, result.ErrorCount)
}
