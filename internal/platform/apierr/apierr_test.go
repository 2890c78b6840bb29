package apierr

import (
	"errors"
	"net/http"
	"testing"

	apperr "github.com/yungbote/storyforge-backend/internal/pkg/errors"
)

func TestFromErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Wrap(apperr.ErrConfiguration, "get", nil), http.StatusNotFound},
		{apperr.Wrap(apperr.ErrState, "advance", nil), http.StatusConflict},
		{apperr.Wrap(apperr.ErrWorkflowBusy, "lock", nil), http.StatusConflict},
		{apperr.Wrap(apperr.ErrGenerationParse, "blueprint", nil), http.StatusBadGateway},
		{apperr.Wrap(apperr.ErrExternalService, "image", nil), http.StatusBadGateway},
		{apperr.Wrap(apperr.ErrInvalidArgument, "start", nil), http.StatusBadRequest},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := FromError(c.err).Status; got != c.want {
			t.Fatalf("FromError(%v): want=%d got=%d", c.err, c.want, got)
		}
	}
}

func TestFromErrorKeepsExplicitAPIError(t *testing.T) {
	in := New(http.StatusTeapot, "teapot", nil)
	if got := FromError(in); got != in {
		t.Fatalf("FromError: want same *Error back")
	}
}
