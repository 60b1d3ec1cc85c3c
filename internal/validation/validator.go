// Package validation wraps validator/v10 and converts its failures into coded validation errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	domainerrors "github.com/refshelf/refshelf-server/internal/errors"
)

var (
	// bib_keys end up between "@type{" and "," in BibTeX output.
	bibKeyPattern   = regexp.MustCompile(`^[^\s{},"#%'()=~\\]+$`)
	fieldKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the project's custom tags registered:
// bibkey, fieldkey and username.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so error details line up with request bodies.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("bibkey", matchString(bibKeyPattern))
	_ = v.RegisterValidation("fieldkey", matchString(fieldKeyPattern))
	_ = v.RegisterValidation("username", matchString(usernamePattern))

	return &Validator{v: v}
}

func matchString(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// Validate validates a struct and returns a *errors.Error with per-field details.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag string such as "required,bibkey".
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.v.Var(value, tag); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domainerrors.ValidationWithDetails("validation failed",
				map[string]string{field: friendlyMessage(verrs[0])})
		}
		return err
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	details := make(map[string]string, len(verrs))
	for _, e := range verrs {
		details[fieldPath(e)] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", details)
}

// fieldPath drops the root struct name: "SaveRequest.fields[0].key" -> "fields[0].key".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "bibkey":
		return "must be a non-empty key without whitespace, braces, commas or quotes"
	case "fieldkey":
		return "must be lowercase letters, digits, '-' or '_' and start with a letter"
	case "username":
		return "may only contain letters, digits, '.', '_' or '-'"
	case "dive":
		return "contains an invalid entry"
	default:
		return "is invalid"
	}
}
