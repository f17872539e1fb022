package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// AskTextbookInput 教材问答工具输入
type AskTextbookInput struct {
	Query     string `json:"query" jsonschema:"The question to answer (required)"`
	PDFID     string `json:"pdf_id,omitempty" jsonschema:"Textbook id from list_textbooks"`
	Role      string `json:"role,omitempty" jsonschema:"strict or default, defaults to default"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Conversation id for memory"`
}

// AskTextbookOutput 教材问答工具输出
type AskTextbookOutput struct {
	Answer    string   `json:"answer" jsonschema:"Answer text"`
	Citations []string `json:"citations" jsonschema:"Page citations of the retrieved passages"`
	Grounded  bool     `json:"grounded" jsonschema:"Whether textbook passages were used"`
}

func (s *MCPServer) askTextbookTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input AskTextbookInput,
) (*mcp.CallToolResult, AskTextbookOutput, error) {
	output := AskTextbookOutput{Citations: []string{}}
	if input.Query == "" {
		return nil, output, fmt.Errorf("query is required")
	}

	result := s.rag.Ask(ctx, domainRAG.Question{
		Query:      input.Query,
		Role:       input.Role,
		DocumentID: input.PDFID,
		SessionID:  input.SessionID,
	})

	output.Answer = result.Answer.Answer
	if result.Citations != nil {
		output.Citations = result.Citations
	}
	output.Grounded = result.Outcome == domainRAG.OutcomeRetrievedNonEmpty
	return nil, output, nil
}

// ListTextbooksInput 教材列表工具输入（空输入）
type ListTextbooksInput struct{}

// TextbookSummary 教材摘要
type TextbookSummary struct {
	ID     string `json:"id" jsonschema:"Textbook id, pass as pdf_id"`
	Title  string `json:"title" jsonschema:"Title"`
	Author string `json:"author" jsonschema:"Author"`
	Pages  int    `json:"pages" jsonschema:"Page count"`
	Status string `json:"status,omitempty" jsonschema:"Ingestion status"`
	Chunks int    `json:"chunks,omitempty" jsonschema:"Indexed chunk count"`
}

// ListTextbooksOutput 教材列表工具输出
type ListTextbooksOutput struct {
	Textbooks  []TextbookSummary `json:"textbooks" jsonschema:"Uploaded textbooks"`
	TotalCount int               `json:"total_count" jsonschema:"Number of textbooks"`
}

func (s *MCPServer) listTextbooksTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ListTextbooksInput,
) (*mcp.CallToolResult, ListTextbooksOutput, error) {
	output := ListTextbooksOutput{Textbooks: []TextbookSummary{}}

	books, err := s.textbooks.List(ctx)
	if err != nil {
		return nil, output, fmt.Errorf("failed to list textbooks: %w", err)
	}

	for _, b := range books {
		output.Textbooks = append(output.Textbooks, TextbookSummary{
			ID:     b.ID,
			Title:  b.Title,
			Author: b.Author,
			Pages:  b.Pages,
			Status: b.Status,
			Chunks: b.Chunks,
		})
	}
	output.TotalCount = len(output.Textbooks)
	return nil, output, nil
}

// IngestTextbookInput 摄取工具输入
type IngestTextbookInput struct {
	PDFID string `json:"pdf_id" jsonschema:"Textbook id (required)"`
}

// IngestTextbookOutput 摄取工具输出
type IngestTextbookOutput struct {
	Queued  bool   `json:"queued" jsonschema:"Whether the textbook was queued"`
	Message string `json:"message" jsonschema:"Result message"`
}

func (s *MCPServer) ingestTextbookTool(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input IngestTextbookInput,
) (*mcp.CallToolResult, IngestTextbookOutput, error) {
	if input.PDFID == "" {
		return nil, IngestTextbookOutput{}, fmt.Errorf("pdf_id is required")
	}

	if err := s.scheduler.Submit(input.PDFID); err != nil {
		if errors.Is(err, appRAG.ErrQueueFull) {
			return nil, IngestTextbookOutput{Message: "ingestion queue is full, try again later"}, nil
		}
		return nil, IngestTextbookOutput{}, fmt.Errorf("failed to queue textbook: %w", err)
	}

	s.logger.Info("Textbook queued via MCP", "document_id", input.PDFID)
	return nil, IngestTextbookOutput{Queued: true, Message: "queued"}, nil
}
