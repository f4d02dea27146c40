// Package binding parses request input into structs and validates it.
// Failures are reported as *problem.ValidationError so the error handling
// middleware renders them as validation documents.
package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Binder binds query strings and bodies. It is safe for concurrent use.
type Binder struct {
	query *validator.Validate
	body  *validator.Validate
}

// New returns a Binder whose field names follow the `query` tag for query
// input and the `json` tag for bodies.
func New() *Binder {
	return &Binder{
		query: newValidate("query"),
		body:  newValidate("json"),
	}
}

// Query parses the query string into dst and validates it.
func (b *Binder) Query(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return parseFailure(err)
	}
	return validationFailure(b.query.Struct(dst))
}

// Body parses the request body into dst and validates it.
func (b *Binder) Body(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return parseFailure(err)
	}
	return validationFailure(b.body.Struct(dst))
}

func newValidate(tag string) *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("between", between); err != nil {
		panic(err)
	}
	return v
}

// between checks `between=LO HI`: numbers by value, strings and collections
// by length.
func between(fl validator.FieldLevel) bool {
	lo, hi, ok := parseRange(fl.Param())
	if !ok {
		return false
	}
	var v float64
	field := fl.Field()
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v = float64(field.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v = float64(field.Uint())
	case reflect.Float32, reflect.Float64:
		v = field.Float()
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		v = float64(field.Len())
	default:
		return false
	}
	return v >= lo && v <= hi
}

func parseRange(param string) (lo, hi float64, ok bool) {
	parts := strings.Fields(param)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, err1 := strconv.ParseFloat(parts[0], 64)
	hi, err2 := strconv.ParseFloat(parts[1], 64)
	return lo, hi, err1 == nil && err2 == nil
}

func validationFailure(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := problem.NewFieldErrors()
	for _, fe := range verrs {
		fields.Add(fe.Field(), message(fe))
	}
	return problem.NewValidationError(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "between":
		parts := strings.Fields(fe.Param())
		if len(parts) == 2 {
			return fmt.Sprintf("must be between %s and %s", parts[0], parts[1])
		}
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "email":
		return "must be a valid email address"
	}
	return fmt.Sprintf("failed the %q rule", fe.Tag())
}

// parseFailure converts parser errors that point at specific fields into a
// validation error. Anything else is returned unchanged.
func parseFailure(err error) error {
	fields := problem.NewFieldErrors()

	var multi fiber.MultiError
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &multi):
		keys := make([]string, 0, len(multi))
		for k := range multi {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields.Add(k, conversionMessage(multi[k]))
		}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		fields.Add(field, "must be a valid "+typeErr.Type.String())
	case errors.As(err, &syntaxErr):
		fields.Add("body", "malformed JSON")
	default:
		return err
	}
	return problem.NewValidationError(fields)
}

func conversionMessage(err error) string {
	var conv fiber.ConversionError
	if errors.As(err, &conv) && conv.Type != nil {
		return "must be a valid " + conv.Type.String()
	}
	var empty fiber.EmptyFieldError
	if errors.As(err, &empty) {
		return "required"
	}
	return err.Error()
}
