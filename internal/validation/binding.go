package validation

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/zfogg/searchstudy/internal/errors"
)

var setupOnce sync.Once

func init() {
	Engine()
}

// Engine returns gin's binding validator with field errors named after the
// json (or uri/form) key and the notblank rule registered.
func Engine() *validator.Validate {
	v := binding.Validator.Engine().(*validator.Validate)
	setupOnce.Do(func() {
		v.RegisterTagNameFunc(wireName)
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
	})
	return v
}

func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "uri", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// Struct checks v against its binding tags.
func Struct(v interface{}) *errors.APIError {
	return FieldError(binding.Validator.ValidateStruct(v))
}

// FieldError turns the first failed binding rule in err into a field error.
// It returns nil when err carries no validation failure.
func FieldError(err error) *errors.APIError {
	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) || len(failed) == 0 {
		return nil
	}

	fe := failed[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return errors.ValidationError(field, field+" is required")
	case "uuid":
		return errors.InvalidUUID(field)
	case "max":
		if fe.Kind() == reflect.String {
			return errors.ValidationError(field, field+" is too long")
		}
		return errors.ValidationError(field, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
	case "min":
		return errors.ValidationError(field, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
	default:
		return errors.ValidationError(field, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
	}
}
