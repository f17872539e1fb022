package rag

import "github.com/google/wire"

// ProviderSet RAG 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideIngestor,
	ProvideIndexService,
	ProvideTextbookService,
	ProvideIngestScheduler,
	ProvideRAGService,
	NewConversationMemory,
	NewInboxConsumer,
	NewModelService,
	NewInitializer,
)
