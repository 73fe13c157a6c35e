package cluster

import (
	"sync"

	"github.com/google/uuid"
)

// lockArena выдает мьютекс на каждый id инцидента, чтобы сериализовать
// операции над одним инцидентом, не останавливая обработку остальных
type lockArena struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newLockArena() *lockArena {
	return &lockArena{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// For возвращает мьютекс инцидента, создавая его при первом обращении
func (a *lockArena) For(id uuid.UUID) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if l, ok := a.locks[id]; ok {
		return l
	}
	l := &sync.Mutex{}
	a.locks[id] = l
	return l
}
