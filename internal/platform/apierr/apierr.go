package apierr

import (
	"errors"
	"fmt"
	"net/http"

	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// FromError maps an error kind to the HTTP status and code returned to callers.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch apperr.KindOf(err) {
	case apperr.ErrConfiguration, apperr.ErrNotFound:
		return New(http.StatusNotFound, "not_found", err)
	case apperr.ErrInvalidArgument:
		return New(http.StatusBadRequest, "invalid_argument", err)
	case apperr.ErrState:
		return New(http.StatusConflict, "invalid_stage", err)
	case apperr.ErrWorkflowBusy:
		return New(http.StatusConflict, "workflow_busy", err)
	case apperr.ErrGenerationParse:
		return New(http.StatusBadGateway, "generation_parse_failed", err)
	case apperr.ErrExternalService:
		return New(http.StatusBadGateway, "external_service_failed", err)
	default:
		return New(http.StatusInternalServerError, "internal_error", err)
	}
}
