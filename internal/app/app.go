package app

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/burgerbar/internal/cache"
	"github.com/Additional-Code/burgerbar/internal/config"
	"github.com/Additional-Code/burgerbar/internal/database"
	"github.com/Additional-Code/burgerbar/internal/logger"
	"github.com/Additional-Code/burgerbar/internal/messaging"
	"github.com/Additional-Code/burgerbar/internal/observability"
	repositorymenu "github.com/Additional-Code/burgerbar/internal/repository/menu"
	repositoryorder "github.com/Additional-Code/burgerbar/internal/repository/order"
	repositoryuser "github.com/Additional-Code/burgerbar/internal/repository/user"
	grpcserver "github.com/Additional-Code/burgerbar/internal/server/grpc"
	httpserver "github.com/Additional-Code/burgerbar/internal/server/http"
	serviceauth "github.com/Additional-Code/burgerbar/internal/service/auth"
	servicemenu "github.com/Additional-Code/burgerbar/internal/service/menu"
	serviceorder "github.com/Additional-Code/burgerbar/internal/service/order"
	transporthttp "github.com/Additional-Code/burgerbar/internal/transport/http"
	"github.com/Additional-Code/burgerbar/internal/worker"
	workerorder "github.com/Additional-Code/burgerbar/internal/worker/order"
)

// Base is configuration, logging and the database. Maintenance commands
// (migrate, seed) run on Base alone.
var Base = fx.Options(
	config.Module,
	logger.Module,
	database.Module,
)

// Core adds the repositories, services and their infrastructure.
var Core = fx.Options(
	Base,
	cache.Module,
	messaging.Module,
	observability.Module,
	repositorymenu.Module,
	repositoryorder.Module,
	repositoryuser.Module,
	serviceauth.Module,
	servicemenu.Module,
	serviceorder.Module,
)

// FxEvents routes the container's lifecycle events through zap.
var FxEvents = fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
})

// HTTP serves the REST API and the gRPC health endpoint.
var HTTP = fx.Options(
	Core,
	FxEvents,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker consumes order events.
var Worker = fx.Options(
	Core,
	FxEvents,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring.
var Module = HTTP
