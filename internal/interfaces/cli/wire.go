package cli

import "github.com/google/wire"

// ProviderSet 命令行 ProviderSet
var ProviderSet = wire.NewSet(
	NewServices,
)
