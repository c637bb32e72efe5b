package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
)

func TestStatusAndGRPCMapping(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
		code   codes.Code
	}{
		{BadRequest("x"), http.StatusBadRequest, codes.InvalidArgument},
		{Unauthorized("x"), http.StatusUnauthorized, codes.Unauthenticated},
		{Forbidden("x"), http.StatusForbidden, codes.PermissionDenied},
		{Conflict("x"), http.StatusConflict, codes.AlreadyExists},
		{NotFound("x"), http.StatusNotFound, codes.NotFound},
		{Unprocessable("x"), http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{Internal("x"), http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		t.Run(string(tc.err.Kind()), func(t *testing.T) {
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.Equal(t, tc.code, tc.err.GRPCCode())
		})
	}
}

func TestCodeAndCause(t *testing.T) {
	sentinel := errors.New("order empty")
	err := BadRequest("Order must contain at least one item.", WithCode("ORDER_EMPTY"), WithCause(sentinel))

	assert.Equal(t, "ORDER_EMPTY", err.Code())
	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, err.IsInternal())
	assert.Contains(t, err.Error(), "order empty")
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	assert.Nil(t, From(nil))

	appErr := From(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, KindInternal, appErr.Kind())
	assert.True(t, appErr.IsInternal())

	original := NotFound("missing", WithDetail("id", 7))
	assert.Same(t, original, From(original))
	assert.Equal(t, 7, original.Details()["id"])
}

func TestNilAppErrorIsSafe(t *testing.T) {
	var e *AppError
	assert.Equal(t, "<nil>", e.Error())
	assert.Equal(t, KindInternal, e.Kind())
	assert.Equal(t, "", e.Code())
	assert.Equal(t, http.StatusInternalServerError, e.StatusCode())
}

func TestFromStatus(t *testing.T) {
	assert.Equal(t, KindNotFound, FromStatus(http.StatusNotFound, "Not Found").Kind())
	assert.Equal(t, KindNotFound, FromStatus(http.StatusMethodNotAllowed, "Method Not Allowed").Kind())
	assert.Equal(t, KindBadRequest, FromStatus(http.StatusRequestEntityTooLarge, "too big").Kind())
	assert.Equal(t, KindUnauthorized, FromStatus(http.StatusUnauthorized, "x").Kind())
	assert.Equal(t, KindInternal, FromStatus(http.StatusBadGateway, "x").Kind())
	assert.Equal(t, "Not Found", FromStatus(http.StatusNotFound, "Not Found").Message())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create order: %w", NotFound("Menu item not found."))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
	assert.Equal(t, http.StatusInternalServerError, New(Kind("teapot"), "x").StatusCode())
}
