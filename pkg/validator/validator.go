package validator

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// shared instance for payloads validated outside echo (AI responses)
var std = newValidate()

// New creates a new CustomValidator instance
func New() *CustomValidator {
	return &CustomValidator{v: newValidate()}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// ValidateStruct validates a struct against its `validate` tags
func ValidateStruct(i interface{}) error {
	return std.Struct(i)
}

func newValidate() *validator.Validate {
	v := validator.New()
	// registration only fails on an empty tag or nil func
	_ = v.RegisterValidation("iana_tz", ianaZone)
	return v
}

// ianaZone accepts named IANA zones. UTC is allowed; the process-local zone
// is not, since requests are scheduled for someone else's clock.
func ianaZone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}
