package problem

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func verbose() Options {
	return Options{IncludeExceptionDetails: true, MaxInnerExceptionDepth: DefaultMaxInnerExceptionDepth}
}

func quiet() Options {
	return Options{MaxInnerExceptionDepth: DefaultMaxInnerExceptionDepth}
}

func nested(depth int) error {
	var err error
	for i := depth; i > 0; i-- {
		err = NewException(CategoryInvalidOperation, fmt.Sprintf("level %d", i), err)
	}
	return err
}

type cyclicError struct{ next error }

func (e *cyclicError) Error() string { return "cycle" }
func (e *cyclicError) Unwrap() error { return e.next }

func TestClassify_RegisteredCategoryStatus(t *testing.T) {
	registry := DefaultRegistry(
		WithStatus("payment.declined", http.StatusPaymentRequired),
		WithStatus(CategoryArgument, http.StatusBadRequest),
	)
	c := NewClassifier(quiet(), registry, nil)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exact", NewException("payment.declined", "card declined", nil), http.StatusPaymentRequired},
		{"not found", NewException(CategoryNotFound, "no such user", nil), http.StatusNotFound},
		{"supertype", NewException(CategoryArgumentOutOfRange, "too big", nil), http.StatusBadRequest},
		{"wrapped", pkgerrors.Wrap(NewException(CategoryNotFound, "gone", nil), "loading"), http.StatusNotFound},
		{"unregistered", NewException("mystery", "what", nil), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err).Status)
		})
	}
}

func TestClassify_ExactBeatsSupertype(t *testing.T) {
	registry := NewRegistry(
		WithParent(CategoryArgumentOutOfRange, CategoryArgument),
		WithStatus(CategoryArgument, http.StatusBadRequest),
		WithStatus(CategoryArgumentOutOfRange, http.StatusRequestedRangeNotSatisfiable),
	)
	c := NewClassifier(quiet(), registry, nil)

	doc := c.Classify(NewException(CategoryArgumentOutOfRange, "index 9", nil))
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, doc.Status)
}

func TestClassify_QuietScenario(t *testing.T) {
	c := NewClassifier(quiet(), nil, nil)
	err := NewException(CategoryArgument, "some exception",
		NewException(CategoryArgumentOutOfRange, "another inner exception", nil))

	doc := c.Classify(err)
	assert.Equal(t, http.StatusInternalServerError, doc.Status)
	assert.Equal(t, "some exception", doc.Title)
	assert.Equal(t, BlankType, doc.Type)
	assert.Empty(t, doc.Detail)
	assert.Empty(t, doc.StackTrace)
	assert.Empty(t, doc.InnerExceptions)

	body, encErr := NewCodec(quiet()).Encode(doc)
	require.NoError(t, encErr)
	assert.JSONEq(t, `{"status":500,"title":"some exception","type":"about:blank"}`, string(body))
}

func TestClassify_VerboseIncludesChainAndStack(t *testing.T) {
	c := NewClassifier(verbose(), nil, nil)
	err := NewException(CategoryArgument, "some exception",
		NewException(CategoryArgumentOutOfRange, "another inner exception", nil))

	doc := c.Classify(err)
	assert.Equal(t, CategoryArgument, doc.ExceptionType)
	assert.Equal(t, "some exception: another inner exception", doc.Detail)
	assert.Equal(t, []InnerException{{Type: CategoryArgumentOutOfRange, Message: "another inner exception"}}, doc.InnerExceptions)
	assert.Contains(t, doc.StackTrace, "TestClassify_VerboseIncludesChainAndStack")
}

func TestClassify_QuietDetailHidesCauses(t *testing.T) {
	err := NewException(CategoryNotFound, "user missing",
		errors.New("pq: password authentication failed for user admin at 10.0.0.5"))

	doc := NewClassifier(quiet(), nil, nil).Classify(err)
	body, encErr := NewCodec(quiet()).Encode(doc)
	require.NoError(t, encErr)
	assert.Equal(t, `{"status":404,"title":"user missing","type":"about:blank"}`, string(body))

	wrapped := NewClassifier(quiet(), nil, nil).Classify(pkgerrors.Wrap(err, "loading profile"))
	assert.Equal(t, http.StatusNotFound, wrapped.Status)
	assert.Equal(t, "loading profile", wrapped.Title)
	assert.Empty(t, wrapped.Detail)

	doc = NewClassifier(verbose(), nil, nil).Classify(err)
	assert.Contains(t, doc.Detail, "password authentication failed")
}

func TestClassify_InnerExceptionDepth(t *testing.T) {
	for _, depth := range []int{1, 2, 5, 11, 12, 40, 80} {
		for _, max := range []int{0, 1, 3, 10, 100} {
			t.Run(fmt.Sprintf("depth=%d/max=%d", depth, max), func(t *testing.T) {
				c := NewClassifier(Options{IncludeExceptionDetails: true, MaxInnerExceptionDepth: max}, nil, nil)
				doc := c.Classify(nested(depth))
				assert.Len(t, doc.InnerExceptions, min(depth-1, max))
				if len(doc.InnerExceptions) > 0 {
					assert.Equal(t, "level 2", doc.InnerExceptions[0].Message)
				}
			})
		}
	}
}

func TestClassify_CyclicChainTerminates(t *testing.T) {
	a := &cyclicError{}
	b := &cyclicError{next: errors.New("middle")}
	a.next = fmt.Errorf("wrap: %w", b)
	b.next = a

	doc := NewClassifier(verbose(), nil, nil).Classify(a)
	assert.Equal(t, http.StatusInternalServerError, doc.Status)
	assert.LessOrEqual(t, len(doc.InnerExceptions), DefaultMaxInnerExceptionDepth)
}

func TestClassify_FiberError(t *testing.T) {
	doc := NewClassifier(quiet(), nil, nil).Classify(fiber.NewError(fiber.StatusMethodNotAllowed, "use POST"))
	assert.Equal(t, http.StatusMethodNotAllowed, doc.Status)
	assert.Equal(t, "Method Not Allowed", doc.Title)
	assert.Equal(t, "use POST", doc.Detail)
}

func TestClassify_GRPCStatus(t *testing.T) {
	c := NewClassifier(quiet(), nil, nil)

	doc := c.Classify(status.Error(codes.NotFound, "user 42"))
	assert.Equal(t, http.StatusNotFound, doc.Status)
	assert.Equal(t, "user 42", doc.Detail)

	doc = c.Classify(fmt.Errorf("calling billing: %w", status.Error(codes.Unavailable, "down")))
	assert.Equal(t, http.StatusServiceUnavailable, doc.Status)
	assert.Empty(t, doc.Detail)
}

func TestClassify_DeadlineRule(t *testing.T) {
	doc := NewClassifier(quiet(), nil, nil).Classify(fmt.Errorf("query: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, doc.Status)
	assert.Equal(t, "query", doc.Title)
}

func TestClassify_ReturnedDocumentAndValidation(t *testing.T) {
	c := NewClassifier(quiet(), nil, nil)

	explicit := NewFactory().NotFound("missing")
	assert.Same(t, explicit, c.Classify(pkgerrors.WithStack(explicit)))

	fields := NewFieldErrors()
	fields.Add("value", "required")
	doc := c.Classify(NewValidationError(fields))
	assert.Equal(t, KindValidation, doc.Kind())
	assert.Equal(t, []string{"required"}, doc.Errors.Messages("value"))
}

func TestClassify_Panic(t *testing.T) {
	c := NewClassifier(verbose(), nil, nil)

	doc := c.Classify(Recovered("boom", []byte("goroutine 1 [running]")))
	assert.Equal(t, "boom", doc.Title)
	assert.Equal(t, CategoryPanic, doc.ExceptionType)
	assert.Equal(t, "goroutine 1 [running]", doc.StackTrace)

	doc = c.Classify(Recovered(NewException(CategoryNotFound, "gone", nil), nil))
	assert.Equal(t, http.StatusNotFound, doc.Status)
	assert.Equal(t, "gone", doc.Title)
}

func TestClassify_NeverFails(t *testing.T) {
	c := NewClassifier(quiet(), NewRegistry(WithRule(Rule{
		Match: func(error) bool { panic("bad rule") },
	})), nil)

	assert.Equal(t, Fallback(), c.Classify(errors.New("x")))
	assert.Equal(t, Fallback(), c.Classify(nil))
	assert.Equal(t, Fallback(), c.Classify(&Document{Status: 42, Title: "bad"}))
}
