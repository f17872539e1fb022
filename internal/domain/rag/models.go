package rag

import "strings"

// Role 回答严格度模式
type Role string

const (
	// RoleStrict 只允许基于教材内容回答
	RoleStrict Role = "strict"
	// RoleDefault 教材优先，允许回退到通用知识
	RoleDefault Role = "default"
)

// NormalizeRole 规范化角色，未识别的值一律视为 default
func NormalizeRole(role string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(role))) {
	case RoleStrict:
		return RoleStrict
	default:
		return RoleDefault
	}
}

// Outcome 单次问答的终态
type Outcome string

const (
	OutcomeNoDocument        Outcome = "no_document"
	OutcomeRetrievedEmpty    Outcome = "retrieved_empty"
	OutcomeRetrievedNonEmpty Outcome = "retrieved_nonempty"
	OutcomeError             Outcome = "error"
)

// Answer 问答结果，四种终态共用同一结构
type Answer struct {
	Answer    string   `json:"answer"`
	Citations []string `json:"citations"`
}

// Question 一次提问
type Question struct {
	Query      string `json:"query"`
	Role       string `json:"role"`
	DocumentID string `json:"pdf_id"`
	SessionID  string `json:"session_id,omitempty"`
}

// Chapter 章节目录项
type Chapter struct {
	Title string `json:"title"`
	Page  int    `json:"page"`
}

// DocumentMetadata 摄取阶段得到的文档元数据
type DocumentMetadata struct {
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Chapters []Chapter `json:"chapters"`
}

// SourceDocument 解析后的源文档：按页顺序的纯文本与可选属性
type SourceDocument struct {
	Pages  []string
	Title  string
	Author string
}
