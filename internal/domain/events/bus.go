package events

// Handler 事件订阅者
// 返回的 error 只会被总线记录，事件不会重投
type Handler interface {
	HandleEvent(event Event) error
}

// HandlerFunc 让普通函数充当 Handler
type HandlerFunc func(event Event) error

// HandleEvent 调用函数本身
func (f HandlerFunc) HandleEvent(event Event) error {
	return f(event)
}

// Unsubscribe 撤销一次订阅，重复调用无副作用
type Unsubscribe = func()

// Publisher 事件发布端
// 摄取调度器只需要发布进度，不关心订阅关系
type Publisher interface {
	// Publish 异步投递事件，总线关闭后调用会被忽略
	Publish(event Event)
}

// Subscriber 事件订阅端
type Subscriber interface {
	// Subscribe 订阅单一事件类型
	Subscribe(eventType EventType, handler Handler) Unsubscribe

	// SubscribeMultiple 用同一个 handler 订阅多种事件类型
	// 返回的函数一次撤销全部订阅
	SubscribeMultiple(eventTypes []EventType, handler Handler) Unsubscribe
}

// EventBus 进程内事件总线
// 收件箱监听、摄取进度与 WebSocket 推送通过它解耦
type EventBus interface {
	Publisher
	Subscriber

	// Close 拒绝新事件并等待在途事件处理完毕
	Close()
}
