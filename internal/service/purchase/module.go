package purchase

import "go.uber.org/fx"

// Module provides the purchase service to Fx.
var Module = fx.Provide(NewService)
