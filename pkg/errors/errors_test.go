package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", Clone(ErrNotFound, "representative not found"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.Equal(t, "representative not found", appErr.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	cause := errors.New("boom")

	appErr := FromError(cause)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, cause)
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrConflict, "phone number already registered")
	assert.Equal(t, "conflict", ErrConflict.Message)
	assert.Equal(t, "phone number already registered", clone.Error())
}

func TestValidationListsFailingFields(t *testing.T) {
	type payload struct {
		FullName    string `validate:"required"`
		PhoneNumber string `validate:"min=7"`
	}
	err := validator.New().Struct(payload{PhoneNumber: "123"})

	appErr := Validation(err, "invalid payload")
	assert.Equal(t, ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid payload", appErr.Message)
	assert.Equal(t, map[string]string{"full_name": "required", "phone_number": "min=7"}, appErr.Details)
	assert.True(t, HasCode(fmt.Errorf("create: %w", appErr), ErrValidation.Code))
	assert.False(t, HasCode(errors.New("plain"), ErrValidation.Code))
}

func TestValidationWithoutFieldErrors(t *testing.T) {
	appErr := Validation(errors.New("bad json"), "invalid payload")
	assert.Nil(t, appErr.Details)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}
