package http

import (
	"go.uber.org/fx"

	authtransport "github.com/Additional-Code/burgerbar/internal/transport/http/auth"
	menutransport "github.com/Additional-Code/burgerbar/internal/transport/http/menu"
	ordertransport "github.com/Additional-Code/burgerbar/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	authtransport.Module,
	menutransport.Module,
	ordertransport.Module,
)
