// Package validator decodes JSON request bodies and checks their shape with
// go-playground/validator tags. Failures are reported in the same
// {"error", "problems"} body the item domain uses for rule violations, so
// clients handle a single 422 shape.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ghuser/inventory/pkg/httpx"
)

// maxBodyBytes caps decoded request bodies; item payloads are small.
const maxBodyBytes = 64 << 10

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so problems match what the client sent.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Validate runs struct-level validation using go-playground/validator tags.
func Validate(s any) error {
	return validate.Struct(s)
}

// Problems flattens validator.ValidationErrors into sorted messages such as
// "price is required". Any other error yields nil.
func Problems(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	problems := make([]string, 0, len(ve))
	for _, e := range ve {
		problems = append(problems, e.Field()+" "+describe(e))
	}
	sort.Strings(problems)
	return problems
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", e.Param())
		}
		return fmt.Sprintf("must not exceed %s", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "email":
		return "must be a valid email address"
	default:
		return fmt.Sprintf("failed the %q rule", e.Tag())
	}
}

// ValidateRequest decodes the JSON request body into T, validates it, and
// writes an error response if either step fails: 400 for a body that is not
// a single JSON object, 422 with the problem list for failed rules.
func ValidateRequest[T any](w http.ResponseWriter, r *http.Request) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "request body must be a JSON object")
		return nil, false
	}
	if dec.More() {
		httpx.JSONError(w, http.StatusBadRequest, "request body must contain a single JSON object")
		return nil, false
	}
	if err := Validate(&req); err != nil {
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":    "validation failed",
			"problems": Problems(err),
		})
		return nil, false
	}
	return &req, true
}
