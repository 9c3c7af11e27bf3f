package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with domain rules registered.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// role must be one of the known system roles
	v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "admin", "doctor", "nurse", "receptionist", "pharmacist", "lab_tech":
			return true
		}
		return false
	})

	return &Validator{v: v}
}

// Struct validates a struct using its validate tags and returns a
// single flattened error message suitable for API responses.
func (v *Validator) Struct(obj interface{}) error {
	err := v.v.Struct(obj)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("validation failed: %s", strings.Join(msgs, "; "))
}

// Var validates a single value against the given rules.
func (v *Validator) Var(value interface{}, rules string) error {
	return v.v.Var(value, rules)
}
