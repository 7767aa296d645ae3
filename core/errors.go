package core

import (
	"net/http"

	"github.com/pkg/errors"
)

// StatusError is an error that carries the HTTP status class the caller should answer with.
type StatusError struct {
	Status int
	Msg    string
}

func (err *StatusError) Error() string {
	return err.Msg
}

func NewNotFoundError(msg string) error {
	return &StatusError{Status: http.StatusNotFound, Msg: msg}
}

func NewForbiddenError(msg string) error {
	return &StatusError{Status: http.StatusForbidden, Msg: msg}
}

// StatusCode returns the status carried by err, or 0 when err is not a StatusError.
func StatusCode(err error) int {
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Status
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// InvariantError signals a programming error on the caller's side (e.g. missing required ids).
type InvariantError struct {
	msg string
}

func NewInvariantError(msg string) error {
	return &InvariantError{msg: msg}
}

func (err *InvariantError) Error() string {
	return err.msg
}

func IsInvariantViolation(err error) bool {
	var ierr *InvariantError
	return errors.As(err, &ierr)
}
