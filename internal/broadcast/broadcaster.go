// Package broadcast рассылает события мутаций подключенным подписчикам.
// Доставка best-effort: медленный подписчик пропускает событие, буфер
// канала сглаживает всплески. Порядок публикации для одной сущности
// сохраняется для каждого подписчика.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/shenikar/hazard_fusion_engine/internal/models"
)

const subscriberBuffer = 128

// Broadcaster раздает события изменений по каналам подписчиков
type Broadcaster struct {
	subscribers map[uint64]chan models.Event
	nextID      atomic.Uint64
	mu          sync.RWMutex
	closed      bool
}

// New создает броадкастер без подписчиков
func New() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan models.Event),
	}
}

// Subscribe регистрирует подписчика и возвращает его id и канал событий
func (b *Broadcaster) Subscribe() (uint64, <-chan models.Event) {
	id := b.nextID.Add(1)
	ch := make(chan models.Event, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subscribers[id] = ch
	}
	b.mu.Unlock()

	return id, ch
}

// Unsubscribe снимает подписчика и закрывает его канал
func (b *Broadcaster) Unsubscribe(id uint64) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

// Publish доставляет событие всем текущим подписчикам. Подписчик с полным
// буфером пропускает событие вместо блокировки издателя.
func (b *Broadcaster) Publish(event models.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Медленный подписчик пропускает событие
		}
	}
}

// SubscriberCount возвращает число подключенных подписчиков
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close закрывает все каналы подписчиков; дальнейшие публикации теряются
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.closed = true
}
