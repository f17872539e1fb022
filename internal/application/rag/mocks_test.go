package rag

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// MockEmbedder 模拟 Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockLanguageModel 模拟 LanguageModel
type MockLanguageModel struct {
	mock.Mock
}

func (m *MockLanguageModel) Complete(ctx context.Context, prompt string) string {
	args := m.Called(ctx, prompt)
	return args.String(0)
}

func (m *MockLanguageModel) Stream(ctx context.Context, prompt string, onDelta func(string) error) (string, error) {
	args := m.Called(ctx, prompt, onDelta)
	return args.String(0), args.Error(1)
}

func (m *MockLanguageModel) CurrentModel() string {
	args := m.Called()
	return args.String(0)
}

// MockHistoryRepository 模拟 HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, record *domainRAG.HistoryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockHistoryRepository) FindBySession(ctx context.Context, sessionID string) ([]*domainRAG.HistoryRecord, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainRAG.HistoryRecord), args.Error(1)
}

// hashEmbedder 确定性的假 Embedder：相同文本得到相同向量
type hashEmbedder struct {
	mu    sync.Mutex
	calls int
	// short 非零时每批少返回 short 个向量
	short int
	err   error
}

func (e *hashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.err != nil {
		return nil, e.err
	}
	n := len(texts) - e.short
	if n < 0 {
		n = 0
	}
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		out[i] = hashVector(texts[i])
	}
	return out, nil
}

func (e *hashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func hashVector(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(text)))
	sum := h.Sum32()
	return []float32{
		float32(sum&0xff) + 1,
		float32((sum>>8)&0xff) + 1,
		float32((sum>>16)&0xff) + 1,
		float32((sum>>24)&0xff) + 1,
	}
}

// fakeParser 返回固定文档的解析器
type fakeParser struct {
	doc *domainRAG.SourceDocument
	err error
}

func (p *fakeParser) Parse(_ context.Context, _ string) (*domainRAG.SourceDocument, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.doc, nil
}

// fakeCounter 按空格计数
type fakeCounter struct{}

func (fakeCounter) CountTokens(text string) int { return len(strings.Fields(text)) }
func (fakeCounter) Method() string              { return "fake" }
