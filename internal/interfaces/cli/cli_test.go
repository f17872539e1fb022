package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

type fakeCatalog struct {
	books    []*appRAG.TextbookView
	uploaded string
	body     string
}

func (f *fakeCatalog) Upload(_ context.Context, name string, r io.Reader) (*appRAG.UploadResult, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploaded, f.body = name, string(b)
	return &appRAG.UploadResult{PDFID: "id-1", Title: "Biology", Author: "Unknown", Pages: 2}, nil
}

func (f *fakeCatalog) List(context.Context) ([]*appRAG.TextbookView, error) {
	return f.books, nil
}

type fakeRunner struct {
	err error
	ran []string
}

func (f *fakeRunner) Run(_ context.Context, id string) (*appRAG.EmbedResult, error) {
	f.ran = append(f.ran, id)
	if f.err != nil {
		return nil, f.err
	}
	return &appRAG.EmbedResult{Status: "embedded", Chunks: 7}, nil
}

type fakeAnswerer struct {
	last domainRAG.Question
}

func (f *fakeAnswerer) Ask(_ context.Context, q domainRAG.Question) *appRAG.Result {
	f.last = q
	return &appRAG.Result{Answer: domainRAG.Answer{Answer: "Energy.", Citations: []string{"page 3"}}}
}

type fakeHistory struct {
	records []*domainRAG.HistoryRecord
}

func (f *fakeHistory) Append(context.Context, *domainRAG.HistoryRecord) error { return nil }

func (f *fakeHistory) FindBySession(context.Context, string) ([]*domainRAG.HistoryRecord, error) {
	return f.records, nil
}

type fakeMemory struct {
	cleared bool
}

func (f *fakeMemory) Stats(_ context.Context, id string) (*domainRAG.MemoryStats, error) {
	return &domainRAG.MemoryStats{SessionID: id, TotalConversations: 1, TotalEntries: 2, ModelUsage: map[string]int{"m": 2}}, nil
}

func (f *fakeMemory) Clear(context.Context, string) bool { return f.cleared }

func (f *fakeMemory) SearchByText(_ context.Context, _, _ string, k int) ([]domainRAG.ConversationTurn, error) {
	return []domainRAG.ConversationTurn{{
		Type:      domainRAG.TurnUserInput,
		Text:      "What is ATP?",
		Timestamp: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}}[:min(k, 1)], nil
}

func (f *fakeMemory) ListSessions(context.Context) ([]string, error) {
	return []string{"b", "a"}, nil
}

type fakeModels struct{ applied int }

func (f *fakeModels) Apply() error {
	f.applied++
	return nil
}

type testServices struct {
	catalog *fakeCatalog
	runner  *fakeRunner
	rag     *fakeAnswerer
	history *fakeHistory
	memory  *fakeMemory
	models  *fakeModels
}

func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	ts := &testServices{
		catalog: &fakeCatalog{},
		runner:  &fakeRunner{},
		rag:     &fakeAnswerer{},
		history: &fakeHistory{},
		memory:  &fakeMemory{},
		models:  &fakeModels{},
	}
	SetServices(&Services{
		Textbooks: ts.catalog,
		Ingest:    ts.runner,
		RAG:       ts.rag,
		History:   ts.history,
		Memory:    ts.memory,
		Models:    ts.models,
	})
	t.Cleanup(func() {
		SetServices(nil)
		outputJSON = false
		askPDF, askRole, askSession = "", string(domainRAG.RoleDefault), ""
		memorySearchLimit = 5
	})
	return ts
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// TestRootCmd_HasSubcommands 测试子命令注册
func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "ingest", "textbooks", "sessions", "memory"} {
		assert.True(t, names[want], want)
	}

	sub := map[string]bool{}
	for _, c := range memoryCmd.Commands() {
		sub[c.Name()] = true
	}
	assert.True(t, sub["stats"])
	assert.True(t, sub["clear"])
	assert.True(t, sub["search"])
	assert.True(t, sub["list"])
}

// TestServicesNotConfigured 未注入服务时报错
func TestServicesNotConfigured(t *testing.T) {
	SetServices(nil)
	_, err := execute(t, "textbooks")
	assert.EqualError(t, err, "services not configured")
}

// TestIngestCmd 测试上传并摄取
func TestIngestCmd(t *testing.T) {
	ts := setupTestServices(t)
	path := filepath.Join(t.TempDir(), "biology.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	out, err := execute(t, "ingest", path)
	require.NoError(t, err)
	assert.Equal(t, "biology.pdf", ts.catalog.uploaded)
	assert.Equal(t, "%PDF", ts.catalog.body)
	assert.Equal(t, []string{"id-1"}, ts.runner.ran)
	assert.Contains(t, out, "id-1  Biology: embedded, 7 chunks")

	t.Run("摄取失败", func(t *testing.T) {
		ts.runner.err = &domainRAG.ExtractionError{Source: "id-1.pdf"}
		_, err := execute(t, "ingest", path)
		require.Error(t, err)
		var extraction *domainRAG.ExtractionError
		assert.True(t, errors.As(err, &extraction))
	})

	t.Run("文件不存在", func(t *testing.T) {
		_, err := execute(t, "ingest", filepath.Join(t.TempDir(), "missing.pdf"))
		assert.Error(t, err)
	})
}

// TestAskCmd 测试提问参数传递
func TestAskCmd(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "ask", "--pdf", "id-1", "--role", "strict", "-s", "s1", "What", "is", "ATP?")
	require.NoError(t, err)
	assert.Equal(t, domainRAG.Question{Query: "What is ATP?", Role: "strict", DocumentID: "id-1", SessionID: "s1"}, ts.rag.last)
	assert.Contains(t, out, "Energy.")
	assert.Contains(t, out, "Sources: page 3")
	assert.Equal(t, 1, ts.models.applied)
}

// TestAskCmd_JSON 测试 JSON 输出
func TestAskCmd_JSON(t *testing.T) {
	setupTestServices(t)

	out, err := execute(t, "ask", "--json", "hi")
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"Energy.","citations":["page 3"]}`, out)
}

// TestTextbooksCmd 测试教材列表
func TestTextbooksCmd(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "textbooks")
	require.NoError(t, err)
	assert.Contains(t, out, "No textbooks uploaded.")

	ts.catalog.books = []*appRAG.TextbookView{{ID: "a", Title: "Physics", Author: "Halliday", Pages: 9, Status: "embedded", Chunks: 3}}
	out, err = execute(t, "textbooks")
	require.NoError(t, err)
	assert.Contains(t, out, "a  Physics (Halliday, 9 pages)  [embedded, 3 chunks]")
}

// TestSessionsCmd 测试会话历史
func TestSessionsCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.history.records = []*domainRAG.HistoryRecord{{Role: "strict", Query: "q1", Answer: "a1"}}

	out, err := execute(t, "sessions", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] (strict) Q: q1")
	assert.Contains(t, out, "A: a1")

	_, err = execute(t, "sessions")
	assert.Error(t, err)
}

// TestMemoryCmds 测试记忆子命令
func TestMemoryCmds(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "memory", "stats", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversations: 1")
	assert.Contains(t, out, "m: 2")

	_, err = execute(t, "memory", "clear", "s1")
	assert.Error(t, err)
	ts.memory.cleared = true
	out, err = execute(t, "memory", "clear", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "Memory of session s1 cleared.")

	out, err = execute(t, "memory", "search", "s1", "ATP", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-01 09:30 user_input")

	out, err = execute(t, "memory", "list")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out)
}
