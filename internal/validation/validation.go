package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonName)
	validate.RegisterValidation("weekday", validateWeekday)
	validate.RegisterValidation("trimmin", validateTrimmedMin)
}

// Struct validates s and returns a ValidationError describing the first
// failing field.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation("%s", describe(verrs[0]))
	}
	return apperr.Validation("invalid input: %v", err)
}

// TrimmedLen counts characters of s ignoring surrounding whitespace.
func TrimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func validateWeekday(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 1 && d <= 7
}

func validateTrimmedMin(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return TrimmedLen(fl.Field().String()) >= n
}

func jsonName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "trimmin":
		return fmt.Sprintf("%s must have at least %s characters", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must have at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", field, strings.ToLower(fe.Param()))
	case "unique":
		return fmt.Sprintf("%s must not repeat values", field)
	case "weekday":
		return fmt.Sprintf("%s must be a weekday between 1 (Monday) and 7 (Sunday)", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid id", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}
