package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arloliu/hierfit/format"
	"github.com/arloliu/hierfit/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("prior", func(fl validator.FieldLevel) bool {
		_, err := model.ParsePrior(fl.Field().String())
		return err == nil
	})
	must("preset", func(fl validator.FieldLevel) bool {
		return model.PresetFromString(fl.Field().String()) != model.Preset(-1)
	})
	must("compression", func(fl validator.FieldLevel) bool {
		_, ok := format.ParseCompression(fl.Field().String())
		return ok
	})

	return v
}

// FieldError is one failed field check.
type FieldError struct {
	// Field is the dotted path of the field, e.g. "Sampler.Warmup".
	Field   string
	Message string
}

// ValidationErrors lists every failed field check of a configuration.
type ValidationErrors []FieldError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Field + ": " + fe.Message
	}

	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Validate checks a configuration struct against its validate tags.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		out = append(out, FieldError{Field: ns, Message: message(fe)})
	}

	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s element(s)", fe.Param())
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "ltfield":
		return "must be less than " + fe.Param()
	case "prior":
		return fmt.Sprintf("invalid prior %q", fe.Value())
	case "preset":
		return fmt.Sprintf("unknown preset %q", fe.Value())
	case "compression":
		return fmt.Sprintf("unknown compression %q", fe.Value())
	default:
		return "failed " + fe.Tag()
	}
}
