package purchase

import "go.uber.org/fx"

// Module provides the purchase repository to Fx.
var Module = fx.Provide(NewRepository)
