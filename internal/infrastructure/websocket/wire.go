package websocket

import "github.com/google/wire"

// ProviderSet WebSocket ProviderSet
var ProviderSet = wire.NewSet(
	ProvideHub,
)

// ProvideHub 提供进度推送 Hub，清理时断开所有订阅者
func ProvideHub() (*Hub, func()) {
	hub := NewHub()
	return hub, hub.Close
}
