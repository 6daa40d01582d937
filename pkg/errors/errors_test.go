package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Nil(t, FromError(nil))
}

func TestCloneMatchesSentinelByCode(t *testing.T) {
	err := WithDetails(ErrBookedSlotRemoved, "slot 19 is booked", map[string]interface{}{"slots": []int{19}})
	wrapped := fmt.Errorf("set availability: %w", err)

	assert.True(t, stdErrors.Is(wrapped, ErrBookedSlotRemoved))
	assert.False(t, stdErrors.Is(wrapped, ErrSlotOutOfRange))
	assert.Equal(t, []int{19}, FromError(wrapped).Details["slots"])
	assert.Nil(t, ErrBookedSlotRemoved.Details)
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(fmt.Errorf("db down"), ErrInternal.Code, ErrInternal.Status, "failed to load")
	assert.Equal(t, "failed to load: db down", err.Error())
	assert.Equal(t, "db down", stdErrors.Unwrap(err).Error())
}
