package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nymav/drax-tbs/internal/domain/events"
)

// recorder 收集收件箱事件
type recorder struct {
	mu     sync.Mutex
	events []*events.InboxFileEvent
}

func (r *recorder) HandleEvent(event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.(*events.InboxFileEvent))
	return nil
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, filepath.Base(e.FilePath))
	}
	return out
}

func startInbox(t *testing.T, dir string) (*InboxWatcher, *recorder) {
	t.Helper()
	bus := NewEventBus()
	t.Cleanup(bus.Close)

	rec := &recorder{}
	bus.SubscribeMultiple([]events.EventType{events.InboxFileCreated, events.InboxFileModified}, rec)

	w, err := NewInboxWatcher(InboxConfig{Dir: dir, DebounceDelay: 100 * time.Millisecond}, bus)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return w, rec
}

func TestIsPDF(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/inbox/book.pdf", true},
		{"/inbox/BOOK.PDF", true},
		{"/inbox/notes.txt", false},
		{"/inbox/pdf", false},
		{"/inbox/archive.pdf.part", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsPDF(tt.path))
		})
	}
}

// TestInboxWatcher_StartupScan 测试启动时发布已有 PDF
func TestInboxWatcher_StartupScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.pdf"), []byte("%PDF-1.4"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.pdf"), 0755))

	_, rec := startInbox(t, dir)

	assert.Eventually(t, func() bool {
		return len(rec.paths()) == 1
	}, time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"existing.pdf"}, rec.paths())
}

// TestInboxWatcher_Debounce 测试连续写入被合并为一个事件
func TestInboxWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	_, rec := startInbox(t, dir)

	// 等待监听就绪
	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(dir, "new.pdf")
	require.NoError(t, os.WriteFile(target, []byte("%PDF"), 0644))
	for i := 0; i < 5; i++ {
		time.Sleep(20 * time.Millisecond)
		require.NoError(t, os.WriteFile(target, []byte("%PDF-more"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644))

	time.Sleep(400 * time.Millisecond)

	paths := rec.paths()
	require.NotEmpty(t, paths)
	assert.LessOrEqual(t, len(paths), 2, "events should be debounced")
	for _, p := range paths {
		assert.Equal(t, "new.pdf", p)
	}

	rec.mu.Lock()
	first := rec.events[0]
	rec.mu.Unlock()
	assert.Equal(t, events.InboxFileCreated, first.EventType)
	assert.Equal(t, int64(len("%PDF-more")), first.FileSize)
}

// TestInboxWatcher_StopIsIdempotent 测试重复停止
func TestInboxWatcher_StopIsIdempotent(t *testing.T) {
	w, _ := startInbox(t, t.TempDir())
	w.Stop()
	assert.NotPanics(t, w.Stop)
}

func TestNewInboxWatcher_EmptyDir(t *testing.T) {
	_, err := NewInboxWatcher(InboxConfig{}, NewEventBus())
	assert.Error(t, err)
}
