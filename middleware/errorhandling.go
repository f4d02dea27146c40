package middleware

import (
	"runtime/debug"

	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// fallbackBody is written when even the fallback document cannot be encoded.
var fallbackBody = []byte(`{"status":500,"title":"` + problem.GenericTitle + `","type":"` + problem.BlankType + `"}`)

// ResponseStartedFunc reports whether the downstream handler already began
// writing the response, after which it can no longer be replaced.
type ResponseStartedFunc func(c *fiber.Ctx) bool

// ResponseStarted is the default predicate: a body stream was attached, an
// immediate header flush was requested, or body bytes were written.
func ResponseStarted(c *fiber.Ctx) bool {
	resp := c.Response()
	return resp.IsBodyStream() || resp.ImmediateHeaderFlush || len(resp.Body()) > 0
}

// ErrorHandlingConfig defines configuration for the error handling middleware.
type ErrorHandlingConfig struct {
	Logger          *zap.Logger
	Options         problem.Options
	Registry        *problem.Registry
	Negotiator      Negotiator
	ResponseStarted ResponseStartedFunc
}

// ErrorHandlingMiddleware turns failures anywhere below it into problem
// documents.
type ErrorHandlingMiddleware struct {
	logger     *zap.Logger
	factory    *problem.Factory
	classifier *problem.Classifier
	codec      *problem.Codec
	negotiate  Negotiator
	started    ResponseStartedFunc
}

// NewErrorHandlingMiddleware creates the middleware. Every collaborator is
// fixed at construction; nothing is looked up per request.
func NewErrorHandlingMiddleware(config ErrorHandlingConfig) *ErrorHandlingMiddleware {
	opts := config.Options.Normalize()
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	negotiate := config.Negotiator
	if negotiate == nil {
		negotiate = NegotiateByAccept
	}
	started := config.ResponseStarted
	if started == nil {
		started = ResponseStarted
	}
	factory := problem.NewFactory()
	return &ErrorHandlingMiddleware{
		logger:     logger,
		factory:    factory,
		classifier: problem.NewClassifier(opts, config.Registry, factory),
		codec:      problem.NewCodec(opts),
		negotiate:  negotiate,
		started:    started,
	}
}

// Factory returns the document factory handlers use for explicit results.
func (m *ErrorHandlingMiddleware) Factory() *problem.Factory { return m.factory }

// Codec returns the codec; its Marshal and Unmarshal fit fiber.Config's
// JSONEncoder and JSONDecoder.
func (m *ErrorHandlingMiddleware) Codec() *problem.Codec { return m.codec }

// Handler wraps the rest of the chain. Returned errors and panics are both
// caught; once a document is written nil is returned so no later stage
// writes again.
func (m *ErrorHandlingMiddleware) Handler() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		x := &exchange{}
		x.to(stateInvoking)

		defer func() {
			if r := recover(); r != nil {
				err = m.handle(c, x, problem.Recovered(r, debug.Stack()))
			}
		}()

		if failure := c.Next(); failure != nil {
			return m.handle(c, x, failure)
		}
		if m.started(c) {
			x.to(stateResponseStarted)
		}
		x.to(stateCompleted)
		return nil
	}
}

// ErrorHandler replaces fiber's default error handler so errors escaping
// every middleware still produce a problem document.
func (m *ErrorHandlingMiddleware) ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		x := &exchange{}
		x.to(stateInvoking)
		return m.handle(c, x, err)
	}
}

// Write sends doc in the negotiated representation.
func (m *ErrorHandlingMiddleware) Write(c *fiber.Ctx, doc *problem.Document) error {
	rep := m.negotiate(c)
	if rep == RepresentationHTML {
		if doc.Validate() != nil {
			doc = problem.Fallback()
		}
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Status(doc.Status).Send(renderHTML(doc))
	}

	body, err := m.codec.Encode(doc)
	if err != nil {
		m.logger.Error("failed to encode problem document",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.Int("status", doc.Status))
		doc = problem.Fallback()
		if body, err = m.codec.Encode(doc); err != nil {
			body = fallbackBody
		}
	}
	c.Set(fiber.HeaderContentType, string(rep))
	return c.Status(doc.Status).Send(body)
}

func (m *ErrorHandlingMiddleware) handle(c *fiber.Ctx, x *exchange, failure error) error {
	if m.started(c) {
		x.to(stateResponseStarted)
		m.logFailure(c, failure, c.Response().StatusCode(),
			"response already started, problem document not written")
		x.to(stateCompleted)
		return nil
	}
	if !x.to(stateHandling) {
		m.logger.Debug("unexpected exchange state",
			zap.Stringer("state", x.state),
			zap.String("path", c.Path()))
	}

	doc := m.classifier.Classify(failure)

	if ctxErr := c.UserContext().Err(); ctxErr != nil {
		m.logFailure(c, failure, doc.Status, "request cancelled, problem document not written")
		x.to(stateCompleted)
		return nil
	}

	if err := m.Write(c, doc); err != nil {
		m.logger.Error("failed to write problem document",
			zap.Error(err),
			zap.String("path", c.Path()))
	}
	m.logFailure(c, failure, doc.Status, "request failed")
	x.to(stateCompleted)
	return nil
}

// logFailure records the original error in full; exposure options never
// apply to logs.
func (m *ErrorHandlingMiddleware) logFailure(c *fiber.Ctx, failure error, status int, msg string) {
	fields := []zap.Field{
		zap.Error(failure),
		zap.String("path", c.Path()),
		zap.String("method", c.Method()),
		zap.Int("status", status),
		zap.String("request_id", RequestIDFrom(c)),
	}
	if stack := m.classifier.Stack(failure); stack != "" {
		fields = append(fields, zap.String("stack", stack))
	}
	if status >= fiber.StatusInternalServerError {
		m.logger.Error(msg, fields...)
		return
	}
	m.logger.Warn(msg, fields...)
}
