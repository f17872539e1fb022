package pdf

import "github.com/google/wire"

// ProviderSet PDF 读取 ProviderSet
var ProviderSet = wire.NewSet(
	NewReader,
)
