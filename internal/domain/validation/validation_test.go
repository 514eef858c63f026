package validation

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/academy-checkout/internal/domain/failure"
)

func TestErrors(t *testing.T) {
	var errs Errors
	require.NoError(t, errs.Err())

	errs.Check(true, "code", "required")
	require.NoError(t, errs.Err())

	errs.Check(false, "code", "required")
	errs.Add("percentage", "must be between 0 and 100")

	err := errs.Err()
	require.Error(t, err)
	assert.Equal(t, "invalid input: code: required; percentage: must be between 0 and 100", err.Error())
	assert.Equal(t, failure.KindInputInvalid, failure.KindOf(err))

	var got Errors
	require.True(t, errors.As(errors.Wrap(err, "create discount"), &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "percentage", got[1].Field)
}
