package handler

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/llm"
	"github.com/nymav/drax-tbs/internal/infrastructure/settings"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Upload(ctx context.Context, originalName string, r io.Reader) (*appRAG.UploadResult, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(originalName, string(body))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appRAG.UploadResult), args.Error(1)
}

func (m *MockCatalog) List(ctx context.Context) ([]*appRAG.TextbookView, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*appRAG.TextbookView), args.Error(1)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, documentID string) (*appRAG.EmbedResult, error) {
	args := m.Called(documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appRAG.EmbedResult), args.Error(1)
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Ask(ctx context.Context, q domainRAG.Question) *appRAG.Result {
	args := m.Called(q)
	return args.Get(0).(*appRAG.Result)
}

func (m *MockAnswerer) AskStream(ctx context.Context, q domainRAG.Question, onDelta func(string) error) (*appRAG.Result, error) {
	args := m.Called(q, onDelta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appRAG.Result), args.Error(1)
}

type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) Append(ctx context.Context, record *domainRAG.HistoryRecord) error {
	return m.Called(record).Error(0)
}

func (m *MockHistory) FindBySession(ctx context.Context, sessionID string) ([]*domainRAG.HistoryRecord, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domainRAG.HistoryRecord), args.Error(1)
}

type MockMemory struct {
	mock.Mock
}

func (m *MockMemory) Stats(ctx context.Context, sessionID string) (*domainRAG.MemoryStats, error) {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domainRAG.MemoryStats), args.Error(1)
}

func (m *MockMemory) Clear(ctx context.Context, sessionID string) bool {
	return m.Called(sessionID).Bool(0)
}

func (m *MockMemory) SearchByText(ctx context.Context, sessionID, text string, k int) ([]domainRAG.ConversationTurn, error) {
	args := m.Called(sessionID, text, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domainRAG.ConversationTurn), args.Error(1)
}

func (m *MockMemory) ListSessions(ctx context.Context) ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockModels struct {
	mock.Mock
}

func (m *MockModels) Settings() (*settings.ModelSettings, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.ModelSettings), args.Error(1)
}

func (m *MockModels) Update(u appRAG.SettingsUpdate) (*settings.ModelSettings, error) {
	args := m.Called(u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.ModelSettings), args.Error(1)
}

func (m *MockModels) ListModels(ctx context.Context) ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockModels) Stats() map[string]llm.ModelStats {
	return m.Called().Get(0).(map[string]llm.ModelStats)
}

func (m *MockModels) History() []llm.RequestRecord {
	return m.Called().Get(0).([]llm.RequestRecord)
}

func (m *MockModels) CurrentModel() string {
	return m.Called().String(0)
}
