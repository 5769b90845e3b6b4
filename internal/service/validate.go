package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/existflow/taskboard/internal/apperr"
)

// validate is shared by every service. Field names in errors are the json names.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
}

// check validates in and converts failures into a validation error
func check(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		name := fe.Namespace()
		if _, rest, found := strings.Cut(name, "."); found {
			name = rest
		}
		fields = append(fields, apperr.FieldError{Field: name, Message: fieldMessage(name, fe)})
	}
	return apperr.Invalid("Validation error", fields...)
}

func fieldMessage(name string, fe validator.FieldError) string {
	unit := "items"
	if fe.Kind() == reflect.String {
		unit = "characters"
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s %s", name, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s %s", name, fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return name + " is invalid"
	}
}

// Date is a JSON time that also accepts a plain YYYY-MM-DD date
type Date struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339, a local "2006-01-02T15:04" or a bare date
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// MarshalJSON writes the RFC 3339 form
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Time)
}
