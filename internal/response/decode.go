// Package response decodes /bfhl responses and projects them into display lines.
package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/verte-zerg/bfhl/internal/model"
)

// Response field names on the wire.
const (
	keyAlphabets        = "alphabets"
	keyNumbers          = "numbers"
	keyHighestLowercase = "highest_lowercase_alphabet"
	keyFileValid        = "file_valid"
	keyFileMIMEType     = "file_mime_type"
	keyFileSizeKB       = "file_size_kb"
)

// Decode parses a response body. Every known field is optional and null counts
// as absent; a field of the wrong type is a ParseError naming it.
func Decode(body []byte) (model.Response, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return model.Response{}, &model.ParseError{Source: model.SourceResponse, Err: err}
	}
	if raw == nil {
		return model.Response{}, &model.ParseError{Source: model.SourceResponse, Err: errors.New("expected a JSON object")}
	}

	var resp model.Response
	var err error
	if resp.Alphabets, err = stringList(raw, keyAlphabets); err != nil {
		return model.Response{}, err
	}
	if resp.Numbers, err = stringList(raw, keyNumbers); err != nil {
		return model.Response{}, err
	}
	if resp.HighestLowercase, err = stringList(raw, keyHighestLowercase); err != nil {
		return model.Response{}, err
	}
	if resp.FileValid, err = optional[bool](raw, keyFileValid); err != nil {
		return model.Response{}, err
	}
	if resp.FileMIMEType, err = optional[string](raw, keyFileMIMEType); err != nil {
		return model.Response{}, err
	}
	if resp.FileSizeKB, err = optional[float64](raw, keyFileSizeKB); err != nil {
		return model.Response{}, err
	}
	return resp, nil
}

func present(raw map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	value, ok := raw[key]
	if !ok || bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		return nil, false
	}
	return value, true
}

func stringList(raw map[string]json.RawMessage, key string) ([]string, error) {
	value, ok := present(raw, key)
	if !ok {
		return nil, nil
	}
	var elems []*string
	if err := json.Unmarshal(value, &elems); err != nil {
		return nil, &model.ParseError{Source: model.SourceResponse, Field: key, Err: err}
	}
	items := make([]string, 0, len(elems))
	for i, elem := range elems {
		if elem == nil {
			return nil, &model.ParseError{Source: model.SourceResponse, Field: key, Err: fmt.Errorf("element %d is null", i)}
		}
		items = append(items, *elem)
	}
	return items, nil
}

func optional[T any](raw map[string]json.RawMessage, key string) (*T, error) {
	value, ok := present(raw, key)
	if !ok {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return nil, &model.ParseError{Source: model.SourceResponse, Field: key, Err: err}
	}
	return &out, nil
}
