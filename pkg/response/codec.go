package response

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Encode serializes a decoded response for cache storage.
func Encode(r *Response) ([]byte, error) {
	if r == nil {
		return nil, errors.New("encode response: nil response")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return data, nil
}

// DecodeJSON restores a response previously produced by Encode.
func DecodeJSON(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, malformed("invalid cached response", err)
	}
	if (r.Result == nil) == (r.Failure == nil) {
		return nil, malformed("cached response must hold exactly one of result and error", nil)
	}
	return &r, nil
}
