package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Additional-Code/burgerbar/pkg/errorbank"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Message string         `json:"message"`
	Kind    string         `json:"kind"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Builder helps construct consistent HTTP responses.
type Builder struct {
	ctx    echo.Context
	status int
	data   any
	err    error
	header http.Header
}

// New instantiates a Builder for the provided request context.
func New(ctx echo.Context) *Builder {
	return &Builder{ctx: ctx, status: http.StatusOK}
}

// WithStatus overrides the response status code.
func (b *Builder) WithStatus(status int) *Builder {
	if status > 0 {
		b.status = status
	}
	return b
}

// WithData attaches a success payload, rendered as the whole body.
func (b *Builder) WithData(data any) *Builder {
	b.data = data
	return b
}

// WithError records an error to be rendered.
func (b *Builder) WithError(err error) *Builder {
	b.err = err
	return b
}

// WithHeader sets a response header.
func (b *Builder) WithHeader(key, value string) *Builder {
	if key == "" {
		return b
	}
	if b.header == nil {
		b.header = make(http.Header)
	}
	b.header.Set(key, value)
	return b
}

// Build finalises and emits the HTTP response.
func (b *Builder) Build() error {
	for k, values := range b.header {
		for _, v := range values {
			b.ctx.Response().Header().Add(k, v)
		}
	}
	if b.err != nil {
		return b.buildError()
	}
	return b.buildSuccess()
}

func (b *Builder) buildSuccess() error {
	if b.status == http.StatusNoContent || b.data == nil {
		return b.ctx.NoContent(b.status)
	}
	return b.ctx.JSON(b.status, b.data)
}

func (b *Builder) buildError() error {
	appErr := errorbank.From(b.err)
	status := b.status
	if status < 400 {
		status = appErr.StatusCode()
	}
	body := ErrorBody{
		Message: appErr.Message(),
		Kind:    string(appErr.Kind()),
		Code:    appErr.Code(),
		Details: appErr.Details(),
	}
	return b.ctx.JSON(status, body)
}
