package interfaces

import (
	"github.com/google/wire"

	"github.com/nymav/drax-tbs/internal/interfaces/http"
	"github.com/nymav/drax-tbs/internal/interfaces/mcp"
)

// ProviderSet Interfaces 层总 ProviderSet
var ProviderSet = wire.NewSet(
	http.ProviderSet,
	mcp.ProviderSet,
)
