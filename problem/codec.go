package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// ContentType is the media type of encoded documents.
const ContentType = "application/problem+json"

var reservedKeys = map[string]struct{}{
	"status":          {},
	"title":           {},
	"detail":          {},
	"type":            {},
	"instance":        {},
	"exceptionType":   {},
	"stackTrace":      {},
	"innerExceptions": {},
	"errors":          {},
}

// Codec serializes documents. Exception internals (type, stack trace and
// causal chain) are only written when the codec is verbose.
type Codec struct {
	verbose bool
}

// NewCodec returns a codec honoring opts.IncludeExceptionDetails.
func NewCodec(opts Options) *Codec {
	return &Codec{verbose: opts.IncludeExceptionDetails}
}

// Verbose reports whether exception internals are emitted.
func (c *Codec) Verbose() bool { return c.verbose }

// Encode writes doc with its members in a fixed order followed by the
// extensions sorted by key.
func (c *Codec) Encode(doc *Document) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, errors.Wrap(err, "encode problem document")
	}

	w := &objectWriter{}
	w.field("status", doc.Status)
	w.field("title", doc.Title)
	w.optional("detail", doc.Detail)
	w.optional("type", doc.Type)
	w.optional("instance", doc.Instance)
	if c.verbose {
		w.optional("exceptionType", doc.ExceptionType)
		w.optional("stackTrace", doc.StackTrace)
		if len(doc.InnerExceptions) > 0 {
			w.field("innerExceptions", doc.InnerExceptions)
		}
	}
	if doc.Errors != nil {
		w.field("errors", doc.Errors)
	}

	keys := make([]string, 0, len(doc.Extensions))
	for k := range doc.Extensions {
		if _, reserved := reservedKeys[k]; !reserved {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		w.field(k, doc.Extensions[k])
	}
	return w.close()
}

// Decode reads a document in either the verbose or the compact shape.
// Members it does not know end up in Extensions.
func (c *Codec) Decode(data []byte) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode problem document")
	}

	doc := &Document{}
	for key, value := range raw {
		var err error
		switch key {
		case "status":
			err = json.Unmarshal(value, &doc.Status)
		case "title":
			err = json.Unmarshal(value, &doc.Title)
		case "detail":
			err = json.Unmarshal(value, &doc.Detail)
		case "type":
			err = json.Unmarshal(value, &doc.Type)
		case "instance":
			err = json.Unmarshal(value, &doc.Instance)
		case "exceptionType":
			err = json.Unmarshal(value, &doc.ExceptionType)
		case "stackTrace":
			err = json.Unmarshal(value, &doc.StackTrace)
		case "innerExceptions":
			err = json.Unmarshal(value, &doc.InnerExceptions)
		case "errors":
			if isNull(value) {
				continue
			}
			doc.Errors = NewFieldErrors()
			err = json.Unmarshal(value, doc.Errors)
		default:
			var v any
			if v, err = decodeExtension(value); err == nil {
				if doc.Extensions == nil {
					doc.Extensions = make(map[string]any)
				}
				doc.Extensions[key] = v
			}
		}
		if err != nil {
			return nil, errors.Wrapf(err, "decode problem member %q", key)
		}
	}
	return doc, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// decodeExtension decodes an extension value. Integral numbers come back as
// int and other numbers as float64, so integer extensions survive a round trip.
func decodeExtension(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return fromNumbers(v), nil
}

func fromNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 0); err == nil {
			return int(i)
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = fromNumbers(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = fromNumbers(t[k])
		}
	}
	return v
}

// Marshal is usable as the host's JSON encoder: documents go through Encode,
// anything else through encoding/json.
func (c *Codec) Marshal(v any) ([]byte, error) {
	switch d := v.(type) {
	case *Document:
		return c.Encode(d)
	case Document:
		return c.Encode(&d)
	}
	return json.Marshal(v)
}

// Unmarshal is the decoding counterpart of Marshal.
func (c *Codec) Unmarshal(data []byte, v any) error {
	if d, ok := v.(*Document); ok {
		doc, err := c.Decode(data)
		if err != nil {
			return err
		}
		*d = *doc
		return nil
	}
	return json.Unmarshal(data, v)
}

type objectWriter struct {
	buf bytes.Buffer
	n   int
	err error
}

func (w *objectWriter) field(key string, value any) {
	if w.err != nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("member %q: %w", key, err)
		return
	}
	if w.n == 0 {
		w.buf.WriteByte('{')
	} else {
		w.buf.WriteByte(',')
	}
	k, _ := json.Marshal(key)
	w.buf.Write(k)
	w.buf.WriteByte(':')
	w.buf.Write(b)
	w.n++
}

func (w *objectWriter) optional(key, value string) {
	if value != "" {
		w.field(key, value)
	}
}

func (w *objectWriter) close() ([]byte, error) {
	if w.err != nil {
		return nil, errors.Wrap(w.err, "encode problem document")
	}
	if w.n == 0 {
		w.buf.WriteByte('{')
	}
	w.buf.WriteByte('}')
	return w.buf.Bytes(), nil
}
