package testtool

import (
	"net/http"
	_ "net/http/pprof" // 匯入後會自動註冊 pprof endpoint

	"transcode_service/pkg/config"
	"transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// PprofAddr 只綁 localhost，不對外開放
const PprofAddr = "127.0.0.1:6060"

// StartPprof 非 production 時啟動 pprof，用來觀察長時間轉碼時的 goroutine / heap
func StartPprof() {
	if config.IsProduction() {
		logger.Log.Info("Production environment detected, pprof is disabled.")
		return
	}

	go func() {
		logger.Log.Info("Starting pprof server", zap.String("addr", PprofAddr))
		if err := http.ListenAndServe(PprofAddr, nil); err != nil {
			logger.Log.Warn("pprof server failed", zap.Error(err))
		}
	}()
}

// 確認 pprof 是否啟動
//   curl http://127.0.0.1:6060/debug/pprof/
// worker 卡住時先看 goroutine
//   go tool pprof http://127.0.0.1:6060/debug/pprof/goroutine
