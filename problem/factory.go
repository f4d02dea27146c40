package problem

import (
	"net/http"
	"strings"
)

// ValidationTitle is the title of every validation document.
const ValidationTitle = "One or more validation errors occurred"

// ValidationError reports model binding or validation failures detected
// before a handler's own logic runs.
type ValidationError struct {
	Fields *FieldErrors
}

// NewValidationError wraps fields.
func NewValidationError(fields *FieldErrors) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if e.Fields.Len() == 0 {
		return ValidationTitle
	}
	parts := make([]string, 0, e.Fields.Len())
	for _, field := range e.Fields.Fields() {
		parts = append(parts, field+": "+strings.Join(e.Fields.Messages(field), ", "))
	}
	return ValidationTitle + ": " + strings.Join(parts, "; ")
}

// Factory builds documents for binding failures and explicit error results.
type Factory struct{}

// NewFactory returns a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// Validation returns a 400 document listing errs by field.
func (f *Factory) Validation(errs *FieldErrors) *Document {
	if errs == nil {
		errs = NewFieldErrors()
	}
	return &Document{
		Status: http.StatusBadRequest,
		Title:  ValidationTitle,
		Type:   BlankType,
		Errors: errs,
	}
}

// BadRequest returns a 400 document. The optional arguments are the title and
// the detail, in that order.
func (f *Factory) BadRequest(titleDetail ...string) *Document {
	return f.withTitleDetail(http.StatusBadRequest, titleDetail)
}

// NotFound returns a 404 document. The optional arguments are the title and
// the detail, in that order.
func (f *Factory) NotFound(titleDetail ...string) *Document {
	return f.withTitleDetail(http.StatusNotFound, titleDetail)
}

// Status returns a generic document for any status. Codes outside the valid
// range produce a 500 document.
func (f *Factory) Status(status int, title, detail string) *Document {
	if status < 100 || status > 599 {
		status = http.StatusInternalServerError
	}
	doc := New(status, title)
	doc.Detail = detail
	return doc
}

func (f *Factory) withTitleDetail(status int, titleDetail []string) *Document {
	var title, detail string
	if len(titleDetail) > 0 {
		title = titleDetail[0]
	}
	if len(titleDetail) > 1 {
		detail = titleDetail[1]
	}
	return f.Status(status, title, detail)
}
