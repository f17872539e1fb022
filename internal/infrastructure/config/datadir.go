package config

import (
	"os"
	"path/filepath"
	"sync"
)

const (
	// EnvDataDir 数据目录环境变量名
	EnvDataDir = "DRAX_DATA_DIR"
	// DefaultDataDirName 默认数据目录名
	DefaultDataDirName = ".drax"
)

var (
	dataDirOnce sync.Once
	dataDirPath string
)

// GetDataDir 获取数据根目录
// 优先读取 DRAX_DATA_DIR 环境变量，默认 ~/.drax/
// 数据库、上传的教材与模型设置都位于此目录下，禁止直接拼接 homeDir + ".drax"
func GetDataDir() string {
	dataDirOnce.Do(func() {
		if dir := os.Getenv(EnvDataDir); dir != "" {
			dataDirPath = dir
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				// 回退到当前目录
				dataDirPath = DefaultDataDirName
				return
			}
			dataDirPath = filepath.Join(homeDir, DefaultDataDirName)
		}
	})
	return dataDirPath
}

// ResetDataDir 重置数据目录缓存（仅用于测试）
func ResetDataDir() {
	dataDirOnce = sync.Once{}
	dataDirPath = ""
}
