package services

import (
	"wedding-registry/apperror"

	"github.com/go-playground/validator/v10"
)

// validate reads the same `binding` tags gin uses, so service callers that skip
// the HTTP layer get identical checks.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	return v
}

func validateStruct(in interface{}) error {
	if err := validate.Struct(in); err != nil {
		return apperror.Binding(err)
	}
	return nil
}

func validEmail(email string) bool {
	return validate.Var(email, "email") == nil
}
