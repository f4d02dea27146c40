package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldErrors maps field names to their validation messages. Fields keep the
// order in which they were first added.
type FieldErrors struct {
	order  []string
	fields map[string][]string
}

// NewFieldErrors returns an empty set.
func NewFieldErrors() *FieldErrors {
	return &FieldErrors{fields: make(map[string][]string)}
}

// Add appends msg to the messages of field.
func (f *FieldErrors) Add(field, msg string) {
	if f.fields == nil {
		f.fields = make(map[string][]string)
	}
	if _, ok := f.fields[field]; !ok {
		f.order = append(f.order, field)
	}
	f.fields[field] = append(f.fields[field], msg)
}

// Fields returns the field names in first-seen order.
func (f *FieldErrors) Fields() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Messages returns the messages recorded for field.
func (f *FieldErrors) Messages(field string) []string {
	if f == nil {
		return nil
	}
	msgs := f.fields[field]
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}

// Len is the number of distinct fields.
func (f *FieldErrors) Len() int {
	if f == nil {
		return 0
	}
	return len(f.order)
}

// MarshalJSON writes the fields as an object in first-seen order.
func (f *FieldErrors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if f != nil {
		for i, field := range f.order {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(field)
			if err != nil {
				return nil, err
			}
			msgs, err := json.Marshal(f.fields[field])
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(msgs)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of string arrays, keeping key order. A bare
// string value is accepted as a single message and null as no errors.
func (f *FieldErrors) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*f = FieldErrors{fields: make(map[string][]string)}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("problem: errors must be an object")
	}
	*f = FieldErrors{fields: make(map[string][]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		field, ok := tok.(string)
		if !ok {
			return fmt.Errorf("problem: unexpected token %v in errors", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var msgs []string
		if err := json.Unmarshal(raw, &msgs); err != nil {
			var single string
			if err2 := json.Unmarshal(raw, &single); err2 != nil {
				return fmt.Errorf("problem: errors.%s: %w", field, err)
			}
			msgs = []string{single}
		}
		if _, seen := f.fields[field]; !seen {
			f.order = append(f.order, field)
		}
		f.fields[field] = append(f.fields[field], msgs...)
	}
	_, err = dec.Token()
	return err
}
