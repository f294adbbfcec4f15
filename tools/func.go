package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/petasbytes/shop-agent/internal/jsonutil"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// Report fields by their JSON names.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Handler implements a tool over a typed, already validated input.
type Handler[T any] func(ctx context.Context, in T) (any, error)

type funcTool[T any] struct {
	decl Declaration
	fn   Handler[T]
}

// Func builds a Tool whose parameter schema is derived from T. Arguments are
// decoded into T and checked against its validate tags before fn runs.
func Func[T any](name, description string, fn Handler[T]) Tool {
	return &funcTool[T]{
		decl: Declaration{Name: name, Description: description, Parameters: GenerateSchema[T]()},
		fn:   fn,
	}
}

func (t *funcTool[T]) Declaration() Declaration { return t.decl }

func (t *funcTool[T]) Invoke(ctx context.Context, args json.RawMessage) (any, error) {
	in, err := Bind[T](t.decl.Name, normalizeIntegers(t.decl.Parameters, args))
	if err != nil {
		return nil, err
	}
	return t.fn(ctx, in)
}

// Bind decodes args into T and applies its validate tags. Failures are
// returned as *ValidationError.
func Bind[T any](tool string, args json.RawMessage) (T, error) {
	var in T
	raw := strings.TrimSpace(string(args))
	if raw == "" {
		raw = "{}"
	}
	if err := jsonutil.UnmarshalString(raw, &in); err != nil {
		return in, &ValidationError{Tool: tool, Reason: fmt.Sprintf("cannot decode arguments: %v", err)}
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return in, &ValidationError{Tool: tool, Field: fe.Field(), Reason: describeRule(fe)}
		}
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// Non-struct inputs carry no rules.
			return in, nil
		}
		return in, &ValidationError{Tool: tool, Reason: err.Error()}
	}
	return in, nil
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is missing"
	case "notblank":
		return "must not be blank"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return fmt.Sprintf("failed %q rule", fe.Tag())
	}
}
