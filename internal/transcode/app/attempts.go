package app

import (
	"context"
	"sync"

	"transcode_service/pkg/database"
)

// localAttempts process 內的投遞次數，沒有 redis 且 queue 不回報 receive count 時使用
// 只看得到這個 process 收到的次數，多個 worker 時上限會變寬鬆，但不會無限重試
type localAttempts struct {
	mu     sync.Mutex
	counts map[string]int
}

var _ database.AttemptTracker = (*localAttempts)(nil)

func newLocalAttempts() *localAttempts {
	return &localAttempts{counts: make(map[string]int)}
}

func (l *localAttempts) Incr(ctx context.Context, messageID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[messageID]++
	return l.counts[messageID], nil
}

func (l *localAttempts) Clear(ctx context.Context, messageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.counts, messageID)
	return nil
}
