package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// Staging purpose tags
const (
	PurposeSource = "src"
	PurposeOutput = "out"
)

// Stager 管理本地暫存檔路徑 (process 內的 scratch dir)
type Stager struct {
	dir string
	seq atomic.Uint64
}

// NewStager dir 為空時使用 os.TempDir()
func NewStager(dir string) (*Stager, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := createDir(dir); err != nil {
		return nil, fmt.Errorf("建立暫存目錄 %s 失敗: %w", dir, err)
	}
	return &Stager{dir: dir}, nil
}

// Dir scratch directory
func (s *Stager) Dir() string {
	return s.dir
}

// Allocate returns a fresh path; 不建立檔案
// 檔名 = 奈秒時間 + purpose + 序號，同 process 內不會撞名
func (s *Stager) Allocate(purpose, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("%d-%s-%d.%s", time.Now().UnixNano(), purpose, s.seq.Add(1), ext)
	return filepath.Join(s.dir, name)
}

// Release removes path if present. 失敗只記 debug，不可蓋掉原本的錯誤
func (s *Stager) Release(path string) {
	if path == "" {
		return
	}
	if err := removeFile(path); err != nil && !os.IsNotExist(err) {
		logger.Log.Debug("release staged file failed", zap.String("path", path), zap.Error(err))
	}
}

// 讓 test 可以替換檔案系統操作
var (
	createDir = func(path string) error {
		return os.MkdirAll(path, 0755)
	}

	removeFile = os.Remove
)
