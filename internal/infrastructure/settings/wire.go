package settings

import "github.com/google/wire"

// ProviderSet 模型设置 ProviderSet
var ProviderSet = wire.NewSet(
	NewConfigManager,
)
