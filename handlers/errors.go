package handlers

import (
	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/gofiber/fiber/v2"
)

// ProblemWriter writes explicit problem results in the representation the
// client negotiated.
type ProblemWriter interface {
	Write(c *fiber.Ctx, doc *problem.Document) error
	Factory() *problem.Factory
}

// BadRequest writes a 400 document. The optional arguments are the title and
// the detail.
func BadRequest(c *fiber.Ctx, w ProblemWriter, titleDetail ...string) error {
	return w.Write(c, w.Factory().BadRequest(titleDetail...))
}

// NotFound writes a 404 document. The optional arguments are the title and
// the detail.
func NotFound(c *fiber.Ctx, w ProblemWriter, titleDetail ...string) error {
	return w.Write(c, w.Factory().NotFound(titleDetail...))
}
