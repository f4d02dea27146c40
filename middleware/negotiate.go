package middleware

import (
	"fmt"
	"html"
	"strings"

	"github.com/VanitasCaesar1/problemdetails/problem"
	"github.com/gofiber/fiber/v2"
)

// Representation is the media type a problem document is written as.
type Representation string

const (
	RepresentationProblemJSON Representation = problem.ContentType
	RepresentationJSON        Representation = fiber.MIMEApplicationJSON
	RepresentationHTML        Representation = fiber.MIMETextHTML
)

// Negotiator picks the representation for a failed request.
type Negotiator func(c *fiber.Ctx) Representation

// NegotiateByAccept chooses from the Accept header only. problem+json wins
// ties and is used when the header is missing or nothing offered is
// acceptable; HTML is used only when the client ranks it first.
func NegotiateByAccept(c *fiber.Ctx) Representation {
	switch c.Accepts(problem.ContentType, fiber.MIMEApplicationJSON, fiber.MIMETextHTML) {
	case fiber.MIMETextHTML:
		return RepresentationHTML
	case fiber.MIMEApplicationJSON:
		return RepresentationJSON
	default:
		return RepresentationProblemJSON
	}
}

// renderHTML produces the minimal page used for browsers. It carries the
// status, title and detail only.
func renderHTML(doc *problem.Document) []byte {
	var b strings.Builder
	title := html.EscapeString(doc.Title)
	b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
	fmt.Fprintf(&b, "<title>%d %s</title></head><body>", doc.Status, title)
	fmt.Fprintf(&b, "<h1>%d %s</h1>", doc.Status, title)
	if doc.Detail != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(doc.Detail))
	}
	if doc.Errors != nil {
		b.WriteString("<ul>")
		for _, field := range doc.Errors.Fields() {
			for _, msg := range doc.Errors.Messages(field) {
				fmt.Fprintf(&b, "<li><b>%s</b>: %s</li>", html.EscapeString(field), html.EscapeString(msg))
			}
		}
		b.WriteString("</ul>")
	}
	b.WriteString("</body></html>\n")
	return []byte(b.String())
}
