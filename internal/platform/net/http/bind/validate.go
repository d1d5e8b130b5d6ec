// Package bind decodes and validates JSON request bodies
package bind

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	perr "feedweave/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

// Rules is the shared validator with english messages keyed by json field names
type Rules struct {
	v     *validator.Validate
	trans ut.Translator
}

var (
	rulesOnce sync.Once
	rules     *Rules
)

// short messages replacing the library defaults, {0} is the field and {1} the tag param
var messages = map[string]string{
	"required": "{0} is required",
	"notblank": "{0} must not be blank",
	"min":      "{0} must be at least {1}",
	"max":      "{0} must be at most {1}",
	"oneof":    "{0} must be one of [{1}]",
}

// Validator returns the process wide Rules
func Validator() *Rules {
	rulesOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonName)
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = entrans.RegisterDefaultTranslations(v, trans)
		for tag, text := range messages {
			override(v, trans, tag, text)
		}
		rules = &Rules{v: v, trans: trans}
	})
	return rules
}

// Check validates a struct and returns a Validation error naming the first bad field
func (r *Rules) Check(s any) error {
	err := r.v.Struct(s)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		return perr.JSONErrf("body must be a JSON object")
	}
	field, msg := r.Explain(err)
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s", msg), field)
}

// Explain returns the first failing field and its translated message
func (r *Rules) Explain(err error) (field, message string) {
	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return "", ""
	case errors.As(err, &verrs) && len(verrs) > 0:
		return verrs[0].Field(), verrs[0].Translate(r.trans)
	default:
		return "", err.Error()
	}
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func override(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, err := t.T(tag, fe.Field(), fe.Param())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}
