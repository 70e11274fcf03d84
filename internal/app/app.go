package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/propdesk/internal/cache"
	"github.com/Additional-Code/propdesk/internal/config"
	"github.com/Additional-Code/propdesk/internal/database"
	"github.com/Additional-Code/propdesk/internal/logger"
	"github.com/Additional-Code/propdesk/internal/messaging"
	"github.com/Additional-Code/propdesk/internal/observability"
	"github.com/Additional-Code/propdesk/internal/ordernumber"
	repositorypurchase "github.com/Additional-Code/propdesk/internal/repository/purchase"
	grpcserver "github.com/Additional-Code/propdesk/internal/server/grpc"
	httpserver "github.com/Additional-Code/propdesk/internal/server/http"
	servicepurchase "github.com/Additional-Code/propdesk/internal/service/purchase"
	transporthttp "github.com/Additional-Code/propdesk/internal/transport/http"
	"github.com/Additional-Code/propdesk/internal/worker"
	workerpurchase "github.com/Additional-Code/propdesk/internal/worker/purchase"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositorypurchase.Module,
	ordernumber.Module,
	servicepurchase.Module,
)

// HTTP wires the HTTP and gRPC transports on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerpurchase.Module,
)

// Module is the default application wiring (HTTP and gRPC).
var Module = HTTP
