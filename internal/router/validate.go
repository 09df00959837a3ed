package router

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func sharedValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInst = validator.New()
	})
	return validatorInst
}

// ValidateStruct runs the teacher's payload-validation convention (a
// `validate:"..."` struct tag per field) against a decoded entity or
// request DTO, returning a *ValidationError the pipeline turns into a 400
// when any tag fails. A nil error means every tagged field passed, or the
// type carries no validate tags at all.
func ValidateStruct(v any) error {
	if err := sharedValidator().Struct(v); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); ok {
			return nil
		}
		var msgs []string
		for _, fe := range err.(validator.ValidationErrors) {
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag()))
		}
		return &ValidationError{Message: strings.Join(msgs, "; ")}
	}
	return nil
}
