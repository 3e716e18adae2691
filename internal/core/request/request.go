package request

import (
	"errors"
	"strings"
)

// ErrInvalidFormat is the sentinel matched by every *ParseError.
var ErrInvalidFormat = errors.New("Invalid request string format")

// Request is one decoded request line: METHOD PATH PROTOCOL.
type Request struct {
	Method   string
	Path     string
	Protocol string
}

// ParseError reports a request line that did not split into exactly three tokens.
type ParseError struct {
	Input  string
	Tokens int
}

func (e *ParseError) Error() string {
	return ErrInvalidFormat.Error()
}

func (e *ParseError) Unwrap() error {
	return ErrInvalidFormat
}

// Parse splits line on single spaces and requires exactly three tokens.
// Empty tokens are kept, so "GET  /x HTTP/1.0" is four tokens and fails.
// Nothing is trimmed: a trailing "\r\n" stays part of the protocol token.
func Parse(line string) (*Request, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 {
		return nil, &ParseError{Input: line, Tokens: len(parts)}
	}
	return &Request{
		Method:   parts[0],
		Path:     parts[1],
		Protocol: parts[2],
	}, nil
}
