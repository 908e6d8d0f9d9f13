// Package response decodes Upcoming.org XML envelopes into typed results
// and encodes decoded results for cache storage.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Envelope status values reported in the stat attribute.
const (
	StatOK   = "ok"
	StatFail = "fail"
)

// Field is a single attribute of an item element.
type Field struct {
	Name  string
	Value string
}

// Item is one child element of the envelope (an event, a venue, a user, ...).
// Fields keep the attribute order of the document.
type Item []Field

// Get returns the value of the named field.
func (it Item) Get(name string) (string, bool) {
	for _, f := range it {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Value returns the value of the named field, or "" if it is absent.
func (it Item) Value(name string) string {
	v, _ := it.Get(name)
	return v
}

// Map returns the fields as an unordered map.
func (it Item) Map() map[string]string {
	m := make(map[string]string, len(it))
	for _, f := range it {
		m[f.Name] = f.Value
	}
	return m
}

// MarshalJSON encodes the item as a JSON object with fields in order.
func (it Item) MarshalJSON() ([]byte, error) {
	if it == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into an item, keeping key order.
func (it *Item) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode item: expected object, got %v", tok)
	}

	fields := Item{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode item key: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode item: unexpected key %v", tok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode item field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode item: %w", err)
	}

	*it = fields
	return nil
}

// Result is a successful envelope.
type Result struct {
	// Stat is the envelope status, normally "ok".
	Stat string `json:"stat"`

	// Count is the resultcount attribute (0 when the API omits it).
	Count int `json:"count"`

	// List holds one item per child element. It is nil when the envelope
	// has no child elements.
	List []Item `json:"list,omitempty"`
}

// Failure is an envelope with stat="fail".
type Failure struct {
	Message string `json:"msg"`
	Code    int    `json:"code,omitempty"`
}

// Response is a decoded envelope. Exactly one of Result and Failure is set.
type Response struct {
	Result  *Result  `json:"result,omitempty"`
	Failure *Failure `json:"error,omitempty"`
}

// Failed reports whether the API rejected the request.
func (r *Response) Failed() bool {
	return r != nil && r.Failure != nil
}

// Clone returns a copy that shares no mutable state with r.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{}
	if r.Failure != nil {
		f := *r.Failure
		out.Failure = &f
	}
	if r.Result != nil {
		res := *r.Result
		if r.Result.List != nil {
			res.List = make([]Item, len(r.Result.List))
			for i, it := range r.Result.List {
				if it != nil {
					res.List[i] = append(Item{}, it...)
				}
			}
		}
		out.Result = &res
	}
	return out
}
