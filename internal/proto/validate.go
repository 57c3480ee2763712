package proto

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode unmarshals an inbound payload into v and checks its field constraints.
func Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return errors.New("data is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		// decoder errors name Go types, so only the field reaches the client
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return fmt.Errorf("%s has the wrong type", typeErr.Field)
		}
		return errors.New("data is not valid JSON")
	}
	return Validate(v)
}

// Validate checks the struct tags of an inbound payload and returns the first
// violation in a form fit to show a client.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "max":
		return fmt.Errorf("%s exceeds %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Errorf("%s must be at least %s", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s is invalid", fe.Field())
	}
}
