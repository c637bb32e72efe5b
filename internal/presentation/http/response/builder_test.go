package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return e.NewContext(req, rec), rec
}

func TestBuildSuccessIsBareBody(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithStatus(http.StatusCreated).WithData(map[string]int{"total": 30}).Build())

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"total":30}`, rec.Body.String())
}

func TestBuildNoContent(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithStatus(http.StatusNoContent).Build())

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestBuildDomainError(t *testing.T) {
	c, rec := newContext()
	err := errorbank.BadRequest("Order must contain at least one item.", errorbank.WithCode("ORDER_EMPTY"))
	require.NoError(t, New(c).WithError(err).Build())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Order must contain at least one item.", body.Message)
	assert.Equal(t, "ORDER_EMPTY", body.Code)
	assert.Equal(t, "bad_request", body.Kind)
}

func TestBuildUnknownErrorHidesCause(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithError(errors.New("pq: password authentication failed")).Build())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), `"message":"Internal server error"`)
}
