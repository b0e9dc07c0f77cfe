package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"debugdiary/internal/errs"

	"github.com/go-playground/validator/v10"
)

// fieldMessages holds the caller-facing message for a "<field>.<tag>" failure.
var fieldMessages = map[string]string{
	"email.required":          "Email and password are required",
	"password.required":       "Email and password are required",
	"email.email":             "Invalid email format",
	"email.max":               "Email must be at most 255 characters long",
	"password.min":            "Password must be at least 6 characters long",
	"password.max":            "Password must be at most 72 characters long",
	"title.required":          "Title, environment, severity, and bug details are required",
	"environment.required":    "Title, environment, severity, and bug details are required",
	"severity.required":       "Title, environment, severity, and bug details are required",
	"bugDetails.required":     "Title, environment, severity, and bug details are required",
	"title.min":               "Title must not be empty",
	"title.max":               "Title must be at most 200 characters long",
	"bugDetails.min":          "Bug details must not be empty",
	"environment.oneof":       "Invalid environment",
	"severity.oneof":          "Invalid severity",
	"rootCauseCategory.oneof": "Invalid root cause category",
	"technologyTags.max":      "At most 20 technology tags are allowed",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tags of req and converts failures into a
// validation error keyed by JSON field name.
func validateStruct(ctx context.Context, v *validator.Validate, req any) error {
	err := v.StructCtx(ctx, req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Internal(err)
	}

	fields := make(map[string]string, len(verrs))
	message := ""
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		}
		fields[fe.Field()] = msg
		if message == "" {
			message = msg
		}
	}
	return errs.Validation(message, fields)
}
