package tokenizer

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter Token 计数接口
type Counter interface {
	CountTokens(text string) int
	Method() string
}

// TiktokenEstimator 使用 tiktoken 估算 Token 数量
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
	mu       sync.RWMutex
}

var (
	tiktokenInstance *TiktokenEstimator
	tiktokenOnce     sync.Once
	tiktokenErr      error
)

// GetTiktokenEstimator 获取 TiktokenEstimator 单例
func GetTiktokenEstimator() (*TiktokenEstimator, error) {
	tiktokenOnce.Do(func() {
		// cl100k_base 对常见开源模型的词表近似足够
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			tiktokenErr = err
			return
		}
		tiktokenInstance = &TiktokenEstimator{
			encoding: enc,
		}
	})

	if tiktokenErr != nil {
		return nil, tiktokenErr
	}
	return tiktokenInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (e *TiktokenEstimator) CountTokens(text string) int {
	if text == "" {
		return 0
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.encoding.Encode(text, nil, nil))
}

// CountTokensBatch 批量计算多个文本的 Token 数量
func (e *TiktokenEstimator) CountTokensBatch(texts []string) int {
	total := 0
	for _, text := range texts {
		total += e.CountTokens(text)
	}
	return total
}

// Method 返回计算方法标识
func (e *TiktokenEstimator) Method() string {
	return "tiktoken"
}

// WordCounter 按空白切分计数
type WordCounter struct{}

// CountTokens 返回空白分隔的词数
func (WordCounter) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Method 返回计算方法标识
func (WordCounter) Method() string {
	return "words"
}

// NewCounter 优先使用 tiktoken，加载失败时退化为词数统计
func NewCounter() Counter {
	est, err := GetTiktokenEstimator()
	if err != nil {
		log.NewModuleLogger("tokenizer", "estimator").Warn("Failed to load tiktoken encoding, falling back to word count",
			"error", err,
		)
		return WordCounter{}
	}
	return est
}
