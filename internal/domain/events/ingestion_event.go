package events

import "time"

// Stage 摄取阶段
type Stage string

const (
	StageQueued     Stage = "queued"
	StageExtracting Stage = "extracting"
	StageEmbedding  Stage = "embedding"
	StageIndexed    Stage = "indexed"
	StageFailed     Stage = "failed"
)

// IngestionEvent 教材摄取进度事件
type IngestionEvent struct {
	DocumentID string    `json:"document_id"`
	Stage      Stage     `json:"stage"`
	Chunks     int       `json:"chunks,omitempty"`
	Error      string    `json:"error,omitempty"`
	EventTime  time.Time `json:"event_time"`
}

// Type 实现 Event 接口
func (e *IngestionEvent) Type() EventType {
	return IngestionProgress
}

// Timestamp 实现 Event 接口
func (e *IngestionEvent) Timestamp() time.Time {
	return e.EventTime
}
