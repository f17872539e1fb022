package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
	"github.com/nymav/drax-tbs/internal/infrastructure/singleton"
)

// Version MCP 服务版本
const Version = "0.1.0"

// answerer 问答编排
type answerer interface {
	Ask(ctx context.Context, q domainRAG.Question) *appRAG.Result
}

// catalog 教材目录
type catalog interface {
	List(ctx context.Context) ([]*appRAG.TextbookView, error)
}

// submitter 异步摄取
type submitter interface {
	Submit(documentID string) error
}

// conversations 会话记忆查询
type conversations interface {
	SearchByText(ctx context.Context, sessionID, text string, k int) ([]domainRAG.ConversationTurn, error)
	Stats(ctx context.Context, sessionID string) (*domainRAG.MemoryStats, error)
	ListSessions(ctx context.Context) ([]string, error)
}

// MCPServer MCP 服务器
type MCPServer struct {
	server    *mcp.Server
	handler   http.Handler
	rag       answerer
	textbooks catalog
	scheduler submitter
	memory    conversations
	logger    *slog.Logger
}

// NewServer 创建 MCP 服务器
func NewServer(
	rag *appRAG.RAGService,
	textbooks *appRAG.TextbookService,
	scheduler *appRAG.IngestScheduler,
	memory *appRAG.ConversationMemory,
) *MCPServer {
	return newServer(rag, textbooks, scheduler, memory)
}

func newServer(rag answerer, textbooks catalog, scheduler submitter, memory conversations) *MCPServer {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    singleton.ServiceName,
			Version: Version,
		},
		nil,
	)

	s := &MCPServer{
		server:    server,
		rag:       rag,
		textbooks: textbooks,
		scheduler: scheduler,
		memory:    memory,
		logger:    log.NewModuleLogger("mcp", "server"),
	}

	mcp.AddTool(server, &mcp.Tool{
		Name: "ask_textbook",
		Description: `Ask a question grounded in an uploaded textbook.
Parameters:
- query (string, required): The question
- pdf_id (string, optional): Textbook id from list_textbooks; omit to answer from general knowledge
- role (string, optional): "strict" answers only from the textbook, "default" may fall back to general knowledge
- session_id (string, optional): Conversation id; related past answers in this session are used as context

Returns: answer text and page citations such as "page 3".`,
	}, s.askTextbookTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_textbooks",
		Description: "List uploaded textbooks with id, title, author, page count and ingestion status. No parameters required.",
	}, s.listTextbooksTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_textbook",
		Description: "Queue an uploaded textbook for ingestion. Parameters: pdf_id (string, required). Returns: queued flag. Progress is published on /ws/ingest/{pdf_id}.",
	}, s.ingestTextbookTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "search_conversations",
		Description: `Search past questions and answers of a conversation session by text.
Parameters:
- session_id (string, required): Conversation id
- query (string, required): Case-insensitive text to look for
- limit (int, optional): Maximum number of results, defaults to 5, max 20

Returns: matching turns, newest first.`,
	}, s.searchConversationsTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "conversation_stats",
		Description: "Get memory statistics of a conversation session. Parameters: session_id (string, optional) - omit to list all sessions with memory. Returns: total conversations, total entries and model usage.",
	}, s.conversationStatsTool)

	s.handler = mcp.NewSSEHandler(
		func(r *http.Request) *mcp.Server {
			return server
		},
		nil,
	)
	return s
}

// GetHandler 获取 HTTP Handler（挂载到 HTTP 服务器）
func (s *MCPServer) GetHandler() http.Handler {
	return s.handler
}

// Server 底层 MCP 服务器
func (s *MCPServer) Server() *mcp.Server {
	return s.server
}
