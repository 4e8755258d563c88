package validators

import (
	"errors"
	"fmt"
	"strings"

	"ridehub/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type customRule struct {
	check   validator.Func
	message string
}

var customRules = map[string]customRule{
	"object_id":     {validateObjectID, "Invalid ID format"},
	"fare_amount":   {validateFareAmount, "Invalid fare amount"},
	"distance":      {validateDistance, "Invalid distance value"},
	"license_plate": {validateLicensePlate, "Invalid license plate format"},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	for tag, rule := range customRules {
		if err := v.RegisterValidation(tag, rule.check); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}

// ValidationError describes one failed field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the errors into field -> message pairs for API responses.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

// ValidateStruct runs the struct tags of s. It returns nil when s is valid.
func ValidateStruct(s interface{}) ValidationErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "request", Message: err.Error()}}
	}

	out := make(ValidationErrors, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		out = append(out, ValidationError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Value:   fmt.Sprint(fe.Value()),
			Message: getErrorMessage(fe),
		})
	}
	return out
}

// fieldPath turns "BookRideRequest.PickupLocation.Address" into "PickupLocation.Address".
func fieldPath(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func getErrorMessage(err validator.FieldError) string {
	if rule, ok := customRules[err.Tag()]; ok {
		return rule.message
	}
	switch err.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", err.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
	case "email":
		return "Invalid email format"
	}
	return fmt.Sprintf("Validation failed for %s", err.Field())
}

func validateObjectID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || IsValidObjectID(value)
}

func validateFareAmount(fl validator.FieldLevel) bool {
	fare := fl.Field().Float()
	return fare >= 0 && fare <= 100000
}

func validateDistance(fl validator.FieldLevel) bool {
	distance := fl.Field().Float()
	return distance >= 0 && distance <= utils.MaxRideDistance
}

func validateLicensePlate(fl validator.FieldLevel) bool {
	plate := strings.TrimSpace(fl.Field().String())
	if len(plate) < 2 || len(plate) > 15 {
		return false
	}
	for _, r := range plate {
		if !(r == ' ' || r == '-' || (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}

// IsValidObjectID reports whether id is a 24-character hex object id.
func IsValidObjectID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
