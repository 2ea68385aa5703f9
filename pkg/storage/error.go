package storage

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sunyakun/foo-controller/pkg/apis"
)

const (
	ReasonNotFound           = "NotFound"
	ReasonAlreadyExist       = "AlreadyExist"
	ReasonConcurrentConflict = "ConcurrentConflict"
)

type StatusError struct {
	ErrStatus apis.Status
}

func (s StatusError) Error() string {
	return s.ErrStatus.Message
}

func reasonOf(err error) string {
	var e StatusError
	if errors.As(err, &e) {
		return e.ErrStatus.Reason
	}
	return ""
}

func newStatusError(code int, reason, message string) StatusError {
	return StatusError{
		ErrStatus: apis.Status{
			ObjectMeta: apis.ObjectMeta{Kind: "Status"},
			Status:     apis.StatusFailure,
			Code:       code,
			Reason:     reason,
			Message:    message,
		},
	}
}

func NewNotFoundError(typeName, key string) StatusError {
	return newStatusError(http.StatusNotFound, ReasonNotFound, fmt.Sprintf("%s %q not found", typeName, key))
}

func IsNotFoundError(err error) bool {
	return reasonOf(err) == ReasonNotFound
}

func NewAlreadyExistError(typeName, key string) StatusError {
	return newStatusError(http.StatusConflict, ReasonAlreadyExist, fmt.Sprintf("%s %q already exist", typeName, key))
}

func IsAlreadyExistError(err error) bool {
	return reasonOf(err) == ReasonAlreadyExist
}

func NewConcurrentConflictError() StatusError {
	return newStatusError(http.StatusForbidden, ReasonConcurrentConflict,
		"the objectVersion in request not equals to the storage version, maybe concurrent conflict")
}

func IsConcurrentConflictError(err error) bool {
	return reasonOf(err) == ReasonConcurrentConflict
}
