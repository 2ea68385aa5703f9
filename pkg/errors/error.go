package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sunyakun/foo-controller/pkg/apis"
)

type APIStatus interface {
	Status() apis.Status
}

type StatusError struct {
	ErrStatus apis.Status
}

func (s StatusError) Status() apis.Status {
	return s.ErrStatus
}

func (s StatusError) Error() string {
	return s.ErrStatus.Message
}

func getErrorCodeAndReason(err error) (int, string) {
	var apiStatus APIStatus
	if errors.As(err, &apiStatus) {
		return apiStatus.Status().Code, apiStatus.Status().Reason
	}
	return 0, ""
}

func newStatusError(code int, message string) StatusError {
	return StatusError{
		ErrStatus: apis.Status{
			ObjectMeta: apis.ObjectMeta{Kind: "Status"},
			Code:       code,
			Status:     apis.StatusFailure,
			Reason:     http.StatusText(code),
			Message:    message,
		},
	}
}

// FromStatus rebuilds the error described by a Status received over the wire.
func FromStatus(status apis.Status) error {
	if status.Status == apis.StatusSuccess {
		return nil
	}
	if status.Code == 0 {
		status.Code = http.StatusInternalServerError
	}
	if status.Reason == "" {
		status.Reason = http.StatusText(status.Code)
	}
	return StatusError{ErrStatus: status}
}

func NewBadRequest(message string) StatusError {
	return newStatusError(http.StatusBadRequest, message)
}

func NewNotFound(kind, key string) StatusError {
	return newStatusError(http.StatusNotFound, fmt.Sprintf("%s %q not found", kind, key))
}

func NewForbidden(operate, kind, key, message string) StatusError {
	return newStatusError(http.StatusForbidden, fmt.Sprintf("%s %s %q is forbidden: %s", operate, kind, key, message))
}

func NewConflict(err error) StatusError {
	return newStatusError(http.StatusConflict, err.Error())
}

// NewUnsupportedMediaType is returned when a patch arrives with a content type
// the server cannot apply.
func NewUnsupportedMediaType(contentType string) StatusError {
	return newStatusError(http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported patch type %q", contentType))
}

// NewInvalidPatch is returned when a status patch touches fields outside of status.
func NewInvalidPatch(kind, key, message string) StatusError {
	return newStatusError(http.StatusUnprocessableEntity, fmt.Sprintf("%s %q: invalid patch: %s", kind, key, message))
}

func NewInternalError(err error) StatusError {
	return newStatusError(http.StatusInternalServerError, err.Error())
}

func IsBadRequestError(err error) bool {
	code, _ := getErrorCodeAndReason(err)
	return code == http.StatusBadRequest
}

func IsNotFoundError(err error) bool {
	code, _ := getErrorCodeAndReason(err)
	return code == http.StatusNotFound
}

func IsForbiddenError(err error) bool {
	code, _ := getErrorCodeAndReason(err)
	return code == http.StatusForbidden
}

func IsConflictError(err error) bool {
	code, _ := getErrorCodeAndReason(err)
	return code == http.StatusConflict
}

func IsInvalidPatchError(err error) bool {
	code, _ := getErrorCodeAndReason(err)
	return code == http.StatusUnprocessableEntity
}

func IsInternalError(err error) bool {
	code, _ := getErrorCodeAndReason(err)
	return code == http.StatusInternalServerError
}
