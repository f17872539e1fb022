package rag

import "context"

// 元数据中的保留键
const (
	MetaPage           = "page"
	MetaEntryID        = "entry_id"
	MetaDocumentID     = "document_id"
	MetaTitle          = "title"
	MetaChapters       = "chapters"
	MetaType           = "type"
	MetaConversationID = "conversation_id"
	MetaTimestamp      = "timestamp"
	MetaModelUsed      = "model_used"
	MetaTags           = "tags"
	MetaPairedResponse = "paired_response"
	MetaPairedInput    = "paired_input"
)

// ConversationNamespacePrefix 会话记忆命名空间前缀
const ConversationNamespacePrefix = "conversations_"

// ConversationNamespace 返回会话记忆所在的命名空间
func ConversationNamespace(sessionID string) string {
	return ConversationNamespacePrefix + sessionID
}

// Record 待写入向量索引的条目
// ID 为空时由索引按 "{namespace}_{ordinal}" 生成
type Record struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]any
}

// Hit 查询命中
type Hit struct {
	ID       string
	Text     string
	Metadata map[string]any
	Distance float64
}

// VectorIndex 按命名空间隔离的向量索引
type VectorIndex interface {
	// Save 追加条目，不替换已有条目
	Save(ctx context.Context, namespace string, records []Record) error
	// Query 返回距离最近的 k 个条目，命名空间不存在时惰性创建并返回空结果
	Query(ctx context.Context, namespace string, vector []float32, k int) ([]Hit, error)
	// All 返回命名空间内全部条目（不含向量）
	All(ctx context.Context, namespace string) ([]Hit, error)
	// DeleteNamespace 删除命名空间，不存在时返回 ErrNamespaceNotFound
	DeleteNamespace(ctx context.Context, namespace string) error
	// HasNamespace 判断命名空间是否存在，不会创建
	HasNamespace(ctx context.Context, namespace string) (bool, error)
	// ListNamespaces 列出全部命名空间
	ListNamespaces(ctx context.Context) ([]string, error)
}

// MetaString 读取字符串元数据
func MetaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

// MetaInt 读取整数元数据，兼容不同后端的数值类型
func MetaInt(meta map[string]any, key string) (int, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float32:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
