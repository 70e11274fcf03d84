package main

import (
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/app"
)

// main runs the purchase API (HTTP and gRPC) until SIGINT/SIGTERM, with Fx
// lifecycle events logged through the service logger.
func main() {
	fx.New(
		app.Module,
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
	).Run()
}
