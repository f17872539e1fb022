package infrastructure

import (
	"github.com/google/wire"

	"github.com/nymav/drax-tbs/internal/infrastructure/config"
	"github.com/nymav/drax-tbs/internal/infrastructure/embedding"
	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/pdf"
	"github.com/nymav/drax-tbs/internal/infrastructure/settings"
	"github.com/nymav/drax-tbs/internal/infrastructure/storage"
	"github.com/nymav/drax-tbs/internal/infrastructure/tokenizer"
	"github.com/nymav/drax-tbs/internal/infrastructure/vector"
	"github.com/nymav/drax-tbs/internal/infrastructure/watcher"
	"github.com/nymav/drax-tbs/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	vector.ProviderSet,
	embedding.ProviderSet,
	llm.ProviderSet,
	settings.ProviderSet,
	tokenizer.ProviderSet,
	pdf.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
)
