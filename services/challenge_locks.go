package services

import (
	"sync"

	"github.com/puzpuzpuz/xsync"
)

// challengeLocks serializes writers per challenge id (or per day key) inside this process.
// Row locks and unique indexes cover writers in other processes.
type challengeLocks struct {
	m *xsync.MapOf[string, *sync.Mutex]
}

func newChallengeLocks() *challengeLocks {
	return &challengeLocks{m: xsync.NewMapOf[*sync.Mutex]()}
}

func (l *challengeLocks) lock(key string) (unlock func()) {
	mu, _ := l.m.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
