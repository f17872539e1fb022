// Package events 定义领域事件类型和接口
// 用于系统内部的事件驱动通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 收件箱文件相关事件类型
const (
	// InboxFileCreated 收件箱中出现新 PDF
	InboxFileCreated EventType = "inbox.file.created"
	// InboxFileModified 收件箱中 PDF 被改写
	InboxFileModified EventType = "inbox.file.modified"
)

// 摄取进度事件类型
const (
	// IngestionProgress 教材摄取进度变化
	IngestionProgress EventType = "ingestion.progress"
)

// Event 领域事件接口
// 所有事件类型都必须实现此接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}
