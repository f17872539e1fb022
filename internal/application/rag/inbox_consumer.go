package rag

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nymav/drax-tbs/internal/domain/events"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// ProcessedDirName 已摄取文件的归档子目录
const ProcessedDirName = "processed"

// InboxConsumer 处理收件箱中的新 PDF：上传、归档、排队摄取
type InboxConsumer struct {
	textbooks   *TextbookService
	scheduler   *IngestScheduler
	bus         events.Subscriber
	logger      *slog.Logger
	mu          sync.Mutex
	unsubscribe func()
}

// NewInboxConsumer 创建收件箱消费者
func NewInboxConsumer(textbooks *TextbookService, scheduler *IngestScheduler, bus events.EventBus) *InboxConsumer {
	return &InboxConsumer{
		textbooks: textbooks,
		scheduler: scheduler,
		bus:       bus,
		logger:    log.NewModuleLogger("rag", "inbox"),
	}
}

// Start 订阅收件箱事件
func (c *InboxConsumer) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil || c.bus == nil {
		return
	}
	c.unsubscribe = c.bus.SubscribeMultiple(
		[]events.EventType{events.InboxFileCreated, events.InboxFileModified},
		events.HandlerFunc(c.HandleEvent),
	)
}

// Stop 取消订阅
func (c *InboxConsumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// HandleEvent 实现 events.Handler
func (c *InboxConsumer) HandleEvent(event events.Event) error {
	e, ok := event.(*events.InboxFileEvent)
	if !ok {
		return nil
	}
	id, err := c.Consume(context.Background(), e.FilePath)
	if err != nil {
		c.logger.Error("Failed to consume inbox file",
			"path", e.FilePath,
			"error", err,
		)
		return err
	}
	c.logger.Info("Inbox file accepted", "path", e.FilePath, "document_id", id)
	return nil
}

// Consume 上传文件并归档到 processed/，随后提交后台摄取
func (c *InboxConsumer) Consume(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open inbox file: %w", err)
	}
	result, err := c.textbooks.Upload(ctx, filepath.Base(path), f)
	f.Close()
	if err != nil {
		return "", err
	}

	if err := archive(path); err != nil {
		// 归档失败会导致重启后重复摄取，只记录
		c.logger.Warn("Failed to archive inbox file", "path", path, "error", err)
	}

	if c.scheduler != nil {
		if err := c.scheduler.Submit(result.PDFID); err != nil {
			return result.PDFID, fmt.Errorf("failed to schedule ingestion: %w", err)
		}
	}
	return result.PDFID, nil
}

// archive 移动到同级 processed 目录
func archive(path string) error {
	dir := filepath.Join(filepath.Dir(path), ProcessedDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}
