package globalstate

import (
	"sync"
	"time"
)

// StatusManager holds the human readable process status shown by the web monitor.
type StatusManager struct {
	mu        sync.RWMutex
	status    string
	changedAt time.Time
}

// GlobalStatus tracks the probe server lifecycle: Starting, Listening, Stopping, Stopped.
var GlobalStatus = NewStatusManager("Starting")

func NewStatusManager(initial string) *StatusManager {
	return &StatusManager{status: initial, changedAt: time.Now()}
}

// Set 更新状态并记录切换时间。
func (sm *StatusManager) Set(newStatus string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.status = newStatus
	sm.changedAt = time.Now()
}

func (sm *StatusManager) Get() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.status
}

// Since reports how long the current status has been in effect.
func (sm *StatusManager) Since() time.Duration {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return time.Since(sm.changedAt)
}
