package rag

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/nymav/drax-tbs/internal/domain/events"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

var (
	// ErrQueueFull 摄取队列已满
	ErrQueueFull = errors.New("ingest queue is full")
	// ErrSchedulerStopped 调度器未运行
	ErrSchedulerStopped = errors.New("ingest scheduler is not running")
)

// SchedulerConfig 调度器配置
type SchedulerConfig struct {
	Workers   int
	QueueSize int
}

// IngestScheduler 后台摄取调度
// 同一文档的摄取通过文档级互斥锁串行执行，保证命名空间只有一个写入者
type IngestScheduler struct {
	textbooks *TextbookService
	bus       events.Publisher
	config    SchedulerConfig
	logger    *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	mu        sync.Mutex
	queue     chan string
	pending   map[string]bool
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewIngestScheduler 创建摄取调度器，bus 可为 nil
func NewIngestScheduler(textbooks *TextbookService, bus events.EventBus, config SchedulerConfig) *IngestScheduler {
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 32
	}
	return &IngestScheduler{
		textbooks: textbooks,
		bus:       bus,
		config:    config,
		logger:    log.NewModuleLogger("rag", "scheduler"),
		locks:     make(map[string]*sync.Mutex),
		pending:   make(map[string]bool),
	}
}

// StartWorkers 启动后台 Worker
func (s *IngestScheduler) StartWorkers() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.queue = make(chan string, s.config.QueueSize)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.isRunning = true

	go s.dispatch(ctx, s.queue, s.done)

	s.logger.Info("Ingest workers started", "count", s.config.Workers)
}

// StopWorkers 停止接收任务并等待进行中的摄取结束
func (s *IngestScheduler) StopWorkers() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.queue)
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("Ingest workers stopped")
}

// dispatch 从队列取任务交给有界 goroutine 池
func (s *IngestScheduler) dispatch(ctx context.Context, queue <-chan string, done chan<- struct{}) {
	defer close(done)

	p := pool.New().WithMaxGoroutines(s.config.Workers)
	for id := range queue {
		p.Go(func() {
			s.mu.Lock()
			delete(s.pending, id)
			s.mu.Unlock()

			if ctx.Err() != nil {
				return
			}
			if _, err := s.Run(ctx, id); err != nil {
				s.logger.Warn("Background ingestion failed",
					"document_id", id,
					"error", err,
				)
			}
		})
	}
	p.Wait()
}

// Submit 异步提交摄取任务，已在队列中的文档不会重复排队
func (s *IngestScheduler) Submit(documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return ErrSchedulerStopped
	}
	if s.pending[documentID] {
		return nil
	}

	select {
	case s.queue <- documentID:
		s.pending[documentID] = true
	default:
		return ErrQueueFull
	}

	s.publish(documentID, events.StageQueued, 0, nil)
	s.logger.Debug("Ingestion queued", "document_id", documentID)
	return nil
}

// Run 同步摄取，与同一文档的其他摄取互斥
func (s *IngestScheduler) Run(ctx context.Context, documentID string) (*EmbedResult, error) {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	return s.textbooks.Embed(ctx, documentID, func(stage events.Stage, chunks int, err error) {
		s.publish(documentID, stage, chunks, err)
	})
}

// lockFor 返回文档级互斥锁
func (s *IngestScheduler) lockFor(documentID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[documentID] = lock
	}
	return lock
}

func (s *IngestScheduler) publish(documentID string, stage events.Stage, chunks int, err error) {
	if s.bus == nil {
		return
	}
	event := &events.IngestionEvent{
		DocumentID: documentID,
		Stage:      stage,
		Chunks:     chunks,
		EventTime:  time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.bus.Publish(event)
}
