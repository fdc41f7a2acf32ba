package serverutils

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every non-2xx response.
func ErrorResponse(code int, message string) fiber.Map {
	return fiber.Map{"message": message, "intric_error_code": code}
}

var validate = validator.New()

// FieldError is one entry of a 422 body.
type FieldError struct {
	Loc  []string          `json:"loc"`
	Msg  string            `json:"msg"`
	Type string            `json:"type"`
	Ctx  map[string]string `json:"ctx,omitempty"`
}

type ValidationError struct {
	Detail []FieldError `json:"detail"`
}

func (e *ValidationError) Error() string {
	if len(e.Detail) == 0 {
		return "validation failed"
	}
	return e.Detail[0].Msg
}

// NewValidationError reports a single invalid field with a readable reason.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Detail: []FieldError{{
		Loc:  []string{"body", field},
		Msg:  reason,
		Type: "value_error",
		Ctx:  map[string]string{"reason": reason},
	}}}
}

// ValidateRequest checks the validate tags of req.
func ValidateRequest(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range fieldErrs {
		out.Detail = append(out.Detail, FieldError{
			Loc:  []string{"body", fe.Field()},
			Msg:  fmt.Sprintf("%s failed on the %q rule", fe.Field(), fe.Tag()),
			Type: "value_error." + fe.Tag(),
		})
	}
	return out
}

// ErrorHandlerMiddleware turns handler errors into JSON error bodies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return ctx.Status(fiber.StatusUnprocessableEntity).JSON(validationErr)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, err.Error()))
	}
}
