// Package cli 实现 draxctl 命令行：在进程内直接调用应用服务
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	appRAG "github.com/nymav/drax-tbs/internal/application/rag"
	domainRAG "github.com/nymav/drax-tbs/internal/domain/rag"
)

// TextbookCatalog 教材上传与列表
type TextbookCatalog interface {
	Upload(ctx context.Context, originalName string, r io.Reader) (*appRAG.UploadResult, error)
	List(ctx context.Context) ([]*appRAG.TextbookView, error)
}

// EmbedRunner 同步摄取
type EmbedRunner interface {
	Run(ctx context.Context, documentID string) (*appRAG.EmbedResult, error)
}

// Answerer 问答
type Answerer interface {
	Ask(ctx context.Context, q domainRAG.Question) *appRAG.Result
}

// MemoryStore 会话记忆
type MemoryStore interface {
	Stats(ctx context.Context, sessionID string) (*domainRAG.MemoryStats, error)
	Clear(ctx context.Context, sessionID string) bool
	SearchByText(ctx context.Context, sessionID, text string, k int) ([]domainRAG.ConversationTurn, error)
	ListSessions(ctx context.Context) ([]string, error)
}

// SettingsApplier 应用已保存的模型设置
type SettingsApplier interface {
	Apply() error
}

// Services 命令行依赖的服务
type Services struct {
	Textbooks TextbookCatalog
	Ingest    EmbedRunner
	RAG       Answerer
	History   domainRAG.HistoryRepository
	Memory    MemoryStore
	Models    SettingsApplier
}

// NewServices 由 wire 组装
func NewServices(
	textbooks *appRAG.TextbookService,
	scheduler *appRAG.IngestScheduler,
	rag *appRAG.RAGService,
	history domainRAG.HistoryRepository,
	memory *appRAG.ConversationMemory,
	models *appRAG.ModelService,
) *Services {
	return &Services{
		Textbooks: textbooks,
		Ingest:    scheduler,
		RAG:       rag,
		History:   history,
		Memory:    memory,
		Models:    models,
	}
}

var (
	services   *Services
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "draxctl",
	Short: "Textbook question answering from the command line",
	Long: `draxctl uploads and ingests textbooks, asks questions grounded in them
and inspects conversation history and memory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")
}

// SetServices 注入服务，必须在 Execute 之前调用
func SetServices(s *Services) {
	services = s
}

// Execute 运行命令行
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func requireServices() error {
	if services == nil {
		return fmt.Errorf("services not configured")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
