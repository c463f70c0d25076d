package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrEmptyBody is returned when a page has no content at all.
var ErrEmptyBody = errors.New("empty body")

// ParseError reports a payload that does not have the expected shape.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodePage decodes one collection page and validates every record.
func DecodePage[T any](source string, body []byte) (*models.CollectionPage[T], error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, &ParseError{Source: source, Err: ErrEmptyBody}
	}

	var page models.CollectionPage[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	if err := validate.Struct(&page); err != nil {
		return nil, &ParseError{Source: source, Err: err}
	}
	return &page, nil
}
