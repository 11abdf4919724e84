package entity

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnknown      = "unknown_error"
	CodeTypeInvalid  = "rest_type_invalid"
	CodeCannotCreate = "rest_cannot_create"
	CodeInvalidParam = "rest_invalid_param"
	CodeNoRoute      = "rest_no_route"
	CodeNotFound     = "rest_post_invalid_id"
)

const (
	msgUnknown      = "An unknown error occurred."
	msgTypeInvalid  = "Invalid post type."
	msgCannotCreate = "Sorry, you are not allowed to create posts as this user."
	msgNoRoute      = "No route was found matching the URL and request method."
	msgNotFound     = "Invalid post ID."
)

// Error is a failed store request as a REST client would see it.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(code, message string, status int, cause error) *Error {
	return &Error{Code: code, Message: message, Status: status, err: cause}
}

func unknownError(cause error) *Error {
	return newError(CodeUnknown, msgUnknown, http.StatusInternalServerError, cause)
}

func invalidParam(param string) *Error {
	return newError(CodeInvalidParam, "Invalid parameter(s): "+param, http.StatusBadRequest, nil)
}

// AsError returns err as an *Error, classifying anything else as unknown.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return unknownError(err)
}
