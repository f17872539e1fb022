package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nymav/drax-tbs/internal/domain/events"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// InboxConfig 收件箱监听配置
type InboxConfig struct {
	// Dir 收件箱目录，只监听顶层文件
	Dir string
	// DebounceDelay 防抖延迟，等待复制完成
	DebounceDelay time.Duration
}

// InboxWatcher 监听收件箱目录中的 PDF
type InboxWatcher struct {
	config   InboxConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewInboxWatcher 创建收件箱监听器
func NewInboxWatcher(config InboxConfig, eventBus events.EventBus) (*InboxWatcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("inbox dir is empty")
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 2 * time.Second
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}

	return &InboxWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "inbox"),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 扫描已有文件并开始监听
func (w *InboxWatcher) Start() error {
	if err := os.MkdirAll(w.config.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create inbox dir: %w", err)
	}

	w.logger.Info("Starting inbox watcher",
		"dir", w.config.Dir,
		"debounce", w.config.DebounceDelay,
	)

	if err := w.watcher.Add(w.config.Dir); err != nil {
		return fmt.Errorf("failed to watch inbox dir: %w", err)
	}

	// 先开始监听再扫描，扫描期间新落地的文件不会漏掉
	w.wg.Add(1)
	go w.watchLoop()

	count := w.scanExisting()
	w.logger.Info("Inbox startup scan completed", "pdfs", count)
	return nil
}

// Stop 停止监听
func (w *InboxWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping inbox watcher")

		close(w.stopCh)
		_ = w.watcher.Close()
		w.wg.Wait()

		w.debounceMu.Lock()
		for _, timer := range w.debounceTimers {
			timer.Stop()
		}
		w.debounceTimers = make(map[string]*time.Timer)
		w.debounceMu.Unlock()
	})
}

// scanExisting 为目录中已有的 PDF 发布 created 事件
func (w *InboxWatcher) scanExisting() int {
	entries, err := os.ReadDir(w.config.Dir)
	if err != nil {
		w.logger.Error("Failed to read inbox dir", "error", err)
		return 0
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsPDF(entry.Name()) {
			continue
		}
		path := filepath.Join(w.config.Dir, entry.Name())
		if w.publish(events.InboxFileCreated, path) {
			count++
		}
	}
	return count
}

func (w *InboxWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 只关心顶层 PDF 的创建与写入，按路径防抖
func (w *InboxWatcher) handleFsEvent(event fsnotify.Event) {
	if !IsPDF(event.Name) || filepath.Dir(event.Name) != filepath.Clean(w.config.Dir) {
		return
	}

	var eventType events.EventType
	switch {
	case event.Has(fsnotify.Create):
		eventType = events.InboxFileCreated
	case event.Has(fsnotify.Write):
		eventType = events.InboxFileModified
	default:
		return
	}

	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	select {
	case <-w.stopCh:
		return
	default:
	}

	// 合并窗口内的首个事件类型保持为 created
	if timer, exists := w.debounceTimers[event.Name]; exists {
		timer.Stop()
		eventType = events.InboxFileCreated
	}

	path := event.Name
	w.debounceTimers[path] = time.AfterFunc(w.config.DebounceDelay, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.publish(eventType, path)
	})
}

// publish 发布事件，文件已消失时跳过
func (w *InboxWatcher) publish(eventType events.EventType, path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	w.eventBus.Publish(&events.InboxFileEvent{
		EventType: eventType,
		FilePath:  path,
		FileSize:  info.Size(),
		ModTime:   info.ModTime(),
		EventTime: time.Now(),
	})

	w.logger.Debug("Inbox file event emitted",
		"type", eventType,
		"path", path,
		"size", info.Size(),
	)
	return true
}

// IsPDF 按扩展名判断，大小写不敏感
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
