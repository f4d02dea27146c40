package problem

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type grpcStatusError interface {
	GRPCStatus() *status.Status
}

// Classifier turns errors into exception documents.
type Classifier struct {
	opts     Options
	registry *Registry
	factory  *Factory
}

// NewClassifier returns a classifier. A nil registry means DefaultRegistry and
// a nil factory means NewFactory.
func NewClassifier(opts Options, registry *Registry, factory *Factory) *Classifier {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if factory == nil {
		factory = NewFactory()
	}
	return &Classifier{opts: opts.Normalize(), registry: registry, factory: factory}
}

// layer is one element of a causal chain.
type layer struct {
	err error
	// msg is the layer's own message; empty for wrappers that only
	// annotate (stack capture, panic envelopes).
	msg string
}

// Classify builds the document describing err. It never fails: anything going
// wrong while classifying yields Fallback.
func (c *Classifier) Classify(err error) (doc *Document) {
	defer func() {
		if r := recover(); r != nil {
			doc = Fallback()
		}
	}()
	if err == nil {
		return Fallback()
	}
	doc = c.classify(err)
	if doc.Validate() != nil {
		return Fallback()
	}
	return doc
}

func (c *Classifier) classify(err error) *Document {
	chain := c.walk(err)

	for _, l := range chain {
		switch e := l.err.(type) {
		case *Document:
			return e
		case *ValidationError:
			return c.factory.Validation(e.Fields)
		}
	}

	statusCode, title, detail := c.resolve(chain)

	described := describing(chain)
	doc := &Document{Status: statusCode, Type: BlankType}
	if described != nil {
		doc.ExceptionType = typeName(described.err)
		doc.Title = described.msg
	} else {
		doc.ExceptionType = typeName(err)
	}
	if title != "" {
		doc.Title = title
	}
	if doc.Title == "" {
		doc.Title = defaultTitle(statusCode)
	}

	// The full message carries every cause, so it is only used when exception
	// details are exposed.
	if detail == "" {
		if c.opts.IncludeExceptionDetails {
			detail = err.Error()
		} else if described != nil {
			detail = described.msg
		}
	}
	if detail != doc.Title && (statusCode < 500 || c.opts.IncludeExceptionDetails) {
		doc.Detail = detail
	}

	if c.opts.IncludeExceptionDetails {
		doc.InnerExceptions = c.innerExceptions(chain, described)
		doc.StackTrace = stackOf(chain)
	}
	return doc
}

// Stack returns the stack trace recorded anywhere in err's chain, regardless
// of whether documents include it. Used for logging.
func (c *Classifier) Stack(err error) (stack string) {
	defer func() {
		if recover() != nil {
			stack = ""
		}
	}()
	if err == nil {
		return ""
	}
	return stackOf(c.walk(err))
}

// walk collects the causal chain outermost first. The number of steps is
// bounded so cyclic chains terminate.
func (c *Classifier) walk(err error) []layer {
	limit := 4*max(c.opts.MaxInnerExceptionDepth, DefaultMaxInnerExceptionDepth) + 8
	var chain []layer
	for cur := err; cur != nil && len(chain) < limit; {
		next := unwrapOnce(cur)
		chain = append(chain, layer{err: cur, msg: ownMessage(cur, next)})
		cur = next
	}
	return chain
}

// resolve picks the status from the outermost layer with an HTTP meaning,
// falling back to the registry rules and finally to 500.
func (c *Classifier) resolve(chain []layer) (code int, title, detail string) {
	for _, l := range chain {
		switch e := l.err.(type) {
		case *fiber.Error:
			return e.Code, defaultTitle(e.Code), e.Message
		case grpcStatusError:
			if st := e.GRPCStatus(); st != nil && st.Code() != codes.OK && st.Code() != codes.Unknown {
				return httpStatusFromGRPC(st.Code()), "", st.Message()
			}
		}
		if cat, ok := l.err.(Categorized); ok {
			if s, found := c.registry.Lookup(cat.Category()); found {
				return s, "", ""
			}
		}
	}
	for _, l := range chain {
		if rule, ok := c.registry.matchRule(l.err); ok {
			return rule.Status, rule.Title, ""
		}
	}
	return http.StatusInternalServerError, "", ""
}

func (c *Classifier) innerExceptions(chain []layer, described *layer) []InnerException {
	var out []InnerException
	past := described == nil
	for i := range chain {
		l := &chain[i]
		if !past {
			past = l == described
			continue
		}
		if l.msg == "" {
			continue
		}
		if len(out) == c.opts.MaxInnerExceptionDepth {
			break
		}
		out = append(out, InnerException{Type: typeName(l.err), Message: l.msg})
	}
	return out
}

// describing returns the outermost layer with a message of its own.
func describing(chain []layer) *layer {
	for i := range chain {
		if chain[i].msg != "" {
			return &chain[i]
		}
	}
	return nil
}

// stackOf prefers a recovered panic stack, then the innermost recorded stack.
func stackOf(chain []layer) string {
	for _, l := range chain {
		if p, ok := l.err.(*PanicError); ok && p.Stack != "" {
			return p.Stack
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if t, ok := chain[i].err.(stackTracer); ok {
			if st := t.StackTrace(); len(st) > 0 {
				return strings.TrimPrefix(fmt.Sprintf("%+v", st), "\n")
			}
		}
	}
	return ""
}

func unwrapOnce(err error) error {
	switch e := err.(type) {
	case interface{ Unwrap() error }:
		return e.Unwrap()
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if inner != nil {
				return inner
			}
		}
		return nil
	case interface{ Cause() error }:
		return e.Cause()
	}
	return nil
}

func ownMessage(err, next error) string {
	if m, ok := err.(interface{ Message() string }); ok {
		return m.Message()
	}
	s := err.Error()
	if next == nil {
		return s
	}
	n := next.Error()
	if s == n {
		return ""
	}
	return strings.TrimSuffix(s, ": "+n)
}

func typeName(err error) string {
	if cat, ok := err.(Categorized); ok && cat.Category() != "" {
		return cat.Category()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

func httpStatusFromGRPC(code codes.Code) int {
	switch code {
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unimplemented:
		return http.StatusNotImplemented
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Canceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
