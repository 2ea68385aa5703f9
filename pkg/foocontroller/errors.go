package foocontroller

import (
	"fmt"

	"github.com/pkg/errors"
)

// Reason classifies a failed reconcile.
type Reason string

const (
	ReasonSerializationFailed Reason = "SerializationFailed"
	ReasonStatusPatchFailed   Reason = "StatusPatchFailed"
	ReasonObjectNotFound      Reason = "ObjectNotFound"
	ReasonFetchFailed         Reason = "FetchFailed"
	// ReasonUnknown is reported for errors that were not raised by Reconciler,
	// e.g. a recovered panic.
	ReasonUnknown Reason = "Unknown"
)

// Error is returned by Reconciler for every failed attempt. None of them is
// fatal to the controller.
type Error struct {
	Reason Reason
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("reconcile %s failed (%s): %v", e.Key, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason Reason, key string, err error, message string) *Error {
	return &Error{Reason: reason, Key: key, Err: errors.Wrap(err, message)}
}

// ReasonOf returns the Reason carried by err.
func ReasonOf(err error) Reason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ReasonUnknown
}
