package problem

import (
	"fmt"
	"net/http"
)

// BlankType is the problem type used when no more specific type URI applies.
const BlankType = "about:blank"

// GenericTitle is the title of the fallback document.
const GenericTitle = "An unexpected error occurred"

// Kind tells which variant a Document represents.
type Kind int

const (
	KindGeneric Kind = iota
	KindException
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindException:
		return "exception"
	case KindValidation:
		return "validation"
	default:
		return "generic"
	}
}

// InnerException describes one link of a causal chain.
type InnerException struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Document is a problem details payload. It is built once per failed request
// and must not be modified after it has been handed to a writer.
type Document struct {
	Status     int
	Title      string
	Detail     string
	Type       string
	Instance   string
	Extensions map[string]any

	// Exception variant.
	ExceptionType   string
	StackTrace      string
	InnerExceptions []InnerException

	// Validation variant.
	Errors *FieldErrors
}

// New returns a generic document for status with the given title. An empty
// title falls back to the status text.
func New(status int, title string) *Document {
	if title == "" {
		title = defaultTitle(status)
	}
	return &Document{Status: status, Title: title, Type: BlankType}
}

// Fallback returns the document written when building the real one failed.
func Fallback() *Document {
	return &Document{
		Status: http.StatusInternalServerError,
		Title:  GenericTitle,
		Type:   BlankType,
	}
}

// Kind reports the variant of the document.
func (d *Document) Kind() Kind {
	switch {
	case d.Errors != nil:
		return KindValidation
	case d.ExceptionType != "":
		return KindException
	default:
		return KindGeneric
	}
}

// Validate checks the invariants every document written to the wire must hold.
func (d *Document) Validate() error {
	if d == nil {
		return fmt.Errorf("problem: nil document")
	}
	if d.Status < 100 || d.Status > 599 {
		return fmt.Errorf("problem: status %d out of range", d.Status)
	}
	if d.Title == "" {
		return fmt.Errorf("problem: empty title")
	}
	return nil
}

// Error lets handlers return a document directly; the error handling
// middleware writes it unchanged.
func (d *Document) Error() string {
	if d.Detail != "" {
		return fmt.Sprintf("%d %s: %s", d.Status, d.Title, d.Detail)
	}
	return fmt.Sprintf("%d %s", d.Status, d.Title)
}

func defaultTitle(status int) string {
	if status == http.StatusInternalServerError {
		return GenericTitle
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return GenericTitle
}
