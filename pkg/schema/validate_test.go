package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"name":       String(),
		"trial_days": Int(),
		"roles":      Slice(String()),
		"bucket":     Nullable(String()),
	}
	data := map[string]any{
		"name":       "Payments",
		"trial_days": 14.0,
		"roles":      []any{"admin", "user"},
		"bucket":     nil,
		"extra":      "ignored",
	}

	assert.NoError(t, Validate(s, data))
}

func TestValidate_ReportsAllFailuresInOrder(t *testing.T) {
	s := Schema{
		"route":  String(),
		"method": String(),
		"name":   String(),
	}
	data := map[string]any{
		"route": 42,
		"name":  "Api",
	}

	err := Validate(s, data)
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 2)

	var first, second *ValidationError
	require.True(t, errors.As(errs[0], &first))
	require.True(t, errors.As(errs[1], &second))
	assert.Equal(t, "method", first.Key)
	assert.Equal(t, "required", first.Reason)
	assert.Equal(t, "route", second.Key)
	assert.Equal(t, 42, second.Value)

	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestValidate_EmptySchema(t *testing.T) {
	assert.NoError(t, Validate(nil, map[string]any{"x": 1}))
	assert.NoError(t, Validate(Schema{}, nil))
}

func TestMissing(t *testing.T) {
	s := Schema{"a": Any(), "b": Any(), "c": Any()}
	assert.Equal(t, []string{"a", "c"}, Missing(s, map[string]any{"b": nil}))
	assert.Empty(t, Missing(s, map[string]any{"a": 1, "b": 2, "c": 3}))
}

func TestValidationError_String(t *testing.T) {
	assert.Equal(t, `field "name": required`, (&ValidationError{Key: "name", Reason: "required"}).Error())
	assert.Equal(t, `field "name": expected string, got int (got int)`,
		(&ValidationError{Key: "name", Reason: "expected string, got int", Value: 3}).Error())
}

func TestValidationErrors_NonAggregate(t *testing.T) {
	assert.Nil(t, ValidationErrors(errors.New("plain")))
}
