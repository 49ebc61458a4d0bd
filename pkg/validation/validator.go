package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// dateLayout is the wire format for dateOfBirth.
const dateLayout = "2006-01-02"

var v = newValidator()

// newValidator builds the package-level validator.
// - Uses JSON tag names in errors.
// - Registers the domain-specific rules and aliases.
func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// adult: a date string implying age >= 18 at validation time
	_ = val.RegisterValidation("adult", func(fl validator.FieldLevel) bool {
		dob, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return false
		}
		return Age(dob, time.Now()) >= 18
	})
	// Password complexity: length plus one lowercase, one uppercase, one digit
	val.RegisterAlias("pwdcomplex", "min=6,containsany=abcdefghijklmnopqrstuvwxyz,containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ,containsany=0123456789")
	// number, not numeric: numeric also accepts a sign and a decimal point.
	val.RegisterAlias("phone10", "len=10,number")
	val.RegisterAlias("zip6", "len=6,number")
	return val
}

// Age returns full years elapsed between dob and now.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// ParseDate parses a dateOfBirth value in the wire format.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// Validate runs struct validation and returns every failing field at once,
// or nil when the value is valid.
func Validate(s any) map[string]string {
	if err := v.Struct(s); err != nil {
		return ToDetails(err)
	}
	return nil
}

// ToDetails converts validation/binding errors into a map[field]message
// suitable for the errors part of the API envelope.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "number":
		return "must contain digits only"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "adult":
		return "must be a valid date of birth implying age 18 or older"
	case "pwdcomplex":
		return "must be at least 6 characters with an uppercase letter, a lowercase letter and a digit"
	case "phone10":
		return "must be exactly 10 digits"
	case "zip6":
		return "must be exactly 6 digits"
	case "containsany":
		return "must contain at least one of '" + param + "'"
	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
