package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"lumberyard/internal/core"

	"github.com/go-playground/validator/v10"
)

// newValidator returns a validator that reports JSON field names and compares
// Money amounts numerically.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return lowerFirst(f.Name)
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if m, ok := field.Interface().(core.Money); ok {
			return m.InexactFloat64()
		}
		return nil
	}, core.Money{})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(core.Date); ok && !d.IsZero() {
			return d.String()
		}
		return nil
	}, core.Date{})
	return v
}

// validateRequest runs struct validation and converts failures into a
// VALIDATION_FAILED error with one detail per offending field.
func (s *appService) validateRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	details := make([]core.Detail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, core.Detail{Field: fieldPath(fe), Reason: describeTag(fe)})
	}
	return core.Validationf(core.CodeValidationFailed, "request validation failed").WithDetails(details...)
}

// fieldPath drops the root struct name from the namespace: "items[0].quantity".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must contain at least " + fe.Param() + " entries"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	}
	return "failed " + fe.Tag() + " check"
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
