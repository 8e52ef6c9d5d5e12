package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var profileNameRegexp = regexp.MustCompile(`^[a-z0-9_-]{1,64}$`)

// FieldError is used to indicate an error with a specific config field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError lists every invalid field of a Config.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "invalid config: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report toml keys instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("profile_name", func(fl validator.FieldLevel) bool {
		return profileNameRegexp.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks cfg and returns a *ValidationError describing every bad field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: strings.TrimPrefix(fe.Namespace(), "Config."),
			Error: describe(fe),
		})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "url":
		return "must be an absolute URL"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "profile_name":
		return "must match ^[a-z0-9_-]{1,64}$"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
