package lendingapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"lendingops/lib/jsonpath"
)

const (
	// SuccessCode is the application code the lending platform answers with
	// when an operation went through.
	SuccessCode = "0000"
	// NetworkErrorCode is set on responses synthesized for calls that never
	// reached the remote side.
	NetworkErrorCode = "NETWORK_ERROR"
)

// Response is the uniform shape of every remote call, whatever the HTTP
// status or transport outcome was.
type Response struct {
	// StatusCode is 0 when the call could not be completed.
	StatusCode int
	// Body is the decoded JSON body, numbers are kept as json.Number.
	Body any
	Raw  []byte
	// DecodeErr is set when Raw was not empty and could not be decoded.
	DecodeErr error
}

func decodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	err := dec.Decode(&out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// NewResponse builds a Response from a status code and a raw body.
func NewResponse(status int, raw []byte) Response {
	body, err := decodeBody(raw)
	return Response{
		StatusCode: status,
		Body:       body,
		Raw:        raw,
		DecodeErr:  err,
	}
}

func networkErrorResponse(err error) Response {
	return Response{
		Body: map[string]any{
			"code":    NetworkErrorCode,
			"message": err.Error(),
		},
	}
}

// Code returns body.code or "" if there is none.
func (r Response) Code() string {
	code, _ := jsonpath.LookupText(r.Body, "code")
	return code
}

// Message returns body.message or "" if there is none.
func (r Response) Message() string {
	msg, _ := jsonpath.LookupText(r.Body, "message")
	return msg
}

// Failed reports whether the body carries an application error code.
func (r Response) Failed() bool {
	code := r.Code()
	return code != "" && code != SuccessCode
}

// ApplicationError is a well-formed response whose code is not the success
// code. The remote side rejected the operation, so nothing issued by it
// (like a drawdown token) can be trusted.
type ApplicationError struct {
	Field   string
	Code    string
	Message string
	Body    any
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("error in %s: code %s - %s", e.Field, e.Code, e.Message)
}

// IsNetwork reports whether the error is a synthesized transport failure.
func (e *ApplicationError) IsNetwork() bool {
	return e.Code == NetworkErrorCode
}

// AsApplicationError unwraps err into an *ApplicationError if it is one.
func AsApplicationError(err error) (*ApplicationError, bool) {
	var appErr *ApplicationError
	ok := errors.As(err, &appErr)
	return appErr, ok
}
