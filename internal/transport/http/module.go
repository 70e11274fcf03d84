package http

import (
	"go.uber.org/fx"

	purchasetransport "github.com/Additional-Code/propdesk/internal/transport/http/purchase"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	purchasetransport.Module,
)
