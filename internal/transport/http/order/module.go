package order

import (
	"go.uber.org/fx"

	httpserver "github.com/Additional-Code/burgerbar/internal/server/http"
)

// Module wires HTTP order handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(api *httpserver.API, h *Handler) {
		Register(api.Group, h)
	}),
)
