package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConfiguration marks a missing workflow, blueprint or roster prerequisite.
	ErrConfiguration = errors.New("configuration error")
	// ErrGenerationParse marks structured model output that does not fit the expected schema.
	ErrGenerationParse = errors.New("generation parse error")
	// ErrExternalService marks a failed text, image, audio or storage call.
	ErrExternalService = errors.New("external service error")
	// ErrState marks an operation attempted in a stage that does not allow it.
	ErrState = errors.New("state error")
	// ErrWorkflowBusy is returned when another caller holds the workflow lock.
	ErrWorkflowBusy = errors.New("workflow busy")
)

// Error attaches an operation name to one of the sentinel kinds above.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Wrap tags err with kind. A nil err yields an error carrying only the kind.
func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a kind-tagged error from a format string.
func Newf(kind error, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the first sentinel kind err carries, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrWorkflowBusy, ErrState, ErrConfiguration, ErrGenerationParse, ErrExternalService, ErrNotFound, ErrInvalidArgument} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
