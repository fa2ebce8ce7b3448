package http

import (
	"errors"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"docseek/internal/core"
)

var registerValidationsOnce sync.Once

// registerValidations adds the tags used by the request DTOs to gin's
// validator.
func registerValidations() {
	registerValidationsOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("notblank", validators.NotBlank)
		}
	})
}

// bindError turns a gin binding error into a ValidationError naming the
// first offending field.
func bindError(err error) *core.ValidationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &core.ValidationError{Field: "body", Reason: err.Error()}
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return &core.ValidationError{Field: field, Reason: "is required"}
	case "oneof":
		return &core.ValidationError{Field: field, Reason: "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")}
	default:
		return &core.ValidationError{Field: field, Reason: "failed " + fe.Tag() + " check"}
	}
}
