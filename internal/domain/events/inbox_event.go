package events

import "time"

// InboxFileEvent 收件箱文件变更事件
// 当收件箱目录下的 *.pdf 文件被创建或写入时触发
type InboxFileEvent struct {
	// EventType 事件类型（created/modified）
	EventType EventType
	// FilePath 文件完整路径
	FilePath string
	// FileSize 文件大小（字节）
	FileSize int64
	// ModTime 文件最后修改时间
	ModTime time.Time
	// EventTime 事件发生时间
	EventTime time.Time
}

// Type 实现 Event 接口
func (e *InboxFileEvent) Type() EventType {
	return e.EventType
}

// Timestamp 实现 Event 接口
func (e *InboxFileEvent) Timestamp() time.Time {
	return e.EventTime
}
