package response

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMalformed matches every DecodeError via errors.Is.
var ErrMalformed = errors.New("malformed response")

// rootElement is the envelope element name used by every API method.
const rootElement = "rsp"

// DecodeError reports a response body that is not a valid envelope.
type DecodeError struct {
	// StatusCode is the HTTP status of the response, 0 when unknown.
	StatusCode int
	Reason     string
	Err        error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	msg := "decode response: " + e.Reason
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both ErrMalformed and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

func malformed(reason string, err error) *DecodeError {
	return &DecodeError{Reason: reason, Err: err}
}

// Decode parses an XML envelope.
//
// The root <rsp> element carries stat and resultcount. A stat of "fail" yields
// a Failure built from the first <error> element at any depth. Otherwise
// every direct child element becomes an Item of its attributes, in document
// order; text, comments and nested elements are ignored.
func Decode(data []byte) (*Response, error) {
	d := xml.NewDecoder(bytes.NewReader(data))

	root, err := firstElement(d)
	if err != nil {
		return nil, err
	}
	if root.Name.Local != rootElement {
		return nil, malformed(fmt.Sprintf("unexpected root element <%s>", root.Name.Local), nil)
	}

	stat, ok := attr(root, "stat")
	if !ok {
		return nil, malformed("missing stat attribute", nil)
	}
	count, err := intAttr(root, "resultcount")
	if err != nil {
		return nil, err
	}

	var list []Item
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, malformed("read envelope", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if stat == StatFail {
				if t.Name.Local == "error" {
					return decodeFailure(t)
				}
				depth++
				continue
			}
			list = append(list, itemFrom(t))
			if err := d.Skip(); err != nil {
				return nil, malformed("read element", err)
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
				continue
			}
			if stat == StatFail {
				return nil, malformed("fail envelope without error element", nil)
			}
			return &Response{Result: &Result{Stat: stat, Count: count, List: list}}, nil
		}
	}
}

func firstElement(d *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return xml.StartElement{}, malformed("empty document", nil)
		}
		if err != nil {
			return xml.StartElement{}, malformed("invalid XML", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			return se, nil
		}
	}
}

func decodeFailure(el xml.StartElement) (*Response, error) {
	msg, _ := attr(el, "msg")
	code, err := intAttr(el, "code")
	if err != nil {
		return nil, err
	}
	return &Response{Failure: &Failure{Message: msg, Code: code}}, nil
}

func itemFrom(el xml.StartElement) Item {
	item := make(Item, 0, len(el.Attr))
	for _, a := range el.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		item = append(item, Field{Name: a.Name.Local, Value: a.Value})
	}
	return item
}

func attr(el xml.StartElement, name string) (string, bool) {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// intAttr parses an optional integer attribute; absent or blank means 0.
func intAttr(el xml.StartElement, name string) (int, error) {
	raw, ok := attr(el, name)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, malformed(fmt.Sprintf("invalid %s attribute %q", name, raw), err)
	}
	return n, nil
}
