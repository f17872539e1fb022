package handler

import "github.com/google/wire"

// ProviderSet Handler ProviderSet
var ProviderSet = wire.NewSet(
	NewTextbookHandler,
	NewChatHandler,
	NewSessionHandler,
	NewMemoryHandler,
	NewModelHandler,
	NewIngestProgressHandler,
)
