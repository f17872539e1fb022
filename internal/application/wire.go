package application

import (
	"github.com/google/wire"

	"github.com/nymav/drax-tbs/internal/application/rag"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	rag.ProviderSet,
)
