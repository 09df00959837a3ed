package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type validateTestPayload struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidateStructRejectsMissingRequiredFields(t *testing.T) {
	err := ValidateStruct(validateTestPayload{})
	assert.Error(t, err)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestValidateStructRejectsMalformedEmail(t *testing.T) {
	err := ValidateStruct(validateTestPayload{Email: "not-an-email", Password: "longenough"})
	assert.Error(t, err)
}

func TestValidateStructAcceptsValidPayload(t *testing.T) {
	err := ValidateStruct(validateTestPayload{Email: "a@example.com", Password: "longenough"})
	assert.NoError(t, err)
}

func TestValidateStructNoOpOnUntaggedStruct(t *testing.T) {
	type plain struct{ Name string }
	err := ValidateStruct(plain{})
	assert.NoError(t, err)
}
