package watcher

import (
	"github.com/google/wire"

	"github.com/nymav/drax-tbs/internal/domain/events"
	"github.com/nymav/drax-tbs/internal/infrastructure/config"
)

// ProviderSet 监听与事件总线 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideEventBus,
	ProvideInboxWatcher,
)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() (events.EventBus, func()) {
	bus := NewEventBus()
	return bus, bus.Close
}

// ProvideInboxWatcher 提供收件箱监听器，未配置目录时返回 nil
func ProvideInboxWatcher(cfg *config.Config, eventBus events.EventBus) (*InboxWatcher, error) {
	if cfg.Inbox.Dir == "" {
		return nil, nil
	}
	return NewInboxWatcher(InboxConfig{
		Dir:           cfg.Inbox.Dir,
		DebounceDelay: cfg.Inbox.DebounceDelay,
	}, eventBus)
}
