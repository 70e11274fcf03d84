package ordernumber

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/config"
	repo "github.com/Additional-Code/propdesk/internal/repository/purchase"
)

// Module provides the durable allocator, backed by the purchase repository.
var Module = fx.Provide(func(r *repo.Repository, cfg config.Config, logger *zap.Logger) *Allocator {
	return NewAllocator(r, SettingsFromConfig(cfg), logger.Named("ordernumber"))
})
