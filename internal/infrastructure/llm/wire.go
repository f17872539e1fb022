package llm

import "github.com/google/wire"

// ProviderSet 语言模型 ProviderSet
var ProviderSet = wire.NewSet(
	NewClient,
	NewModelSession,
)
