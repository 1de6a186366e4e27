package history

import (
	"sync"

	"pulsemon/internal/models"
)

// Buffer keeps the most recent samples in a fixed-size ring, oldest first.
type Buffer struct {
	mu    sync.RWMutex
	items []models.Sample
	head  int
	size  int
}

func NewBuffer(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, models.ErrInvalidCapacity
	}
	return &Buffer{items: make([]models.Sample, capacity)}, nil
}

// Append stores a copy of s, evicting the single oldest sample when full.
func (b *Buffer) Append(s models.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.appendLocked(s.Clone())
}

func (b *Buffer) appendLocked(s models.Sample) {
	c := len(b.items)
	if b.size < c {
		b.items[(b.head+b.size)%c] = s
		b.size++
		return
	}
	b.items[b.head] = s
	b.head = (b.head + 1) % c
}

// Snapshot returns copies of the buffered samples, oldest first.
func (b *Buffer) Snapshot() []models.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

func (b *Buffer) snapshotLocked() []models.Sample {
	out := make([]models.Sample, 0, b.size)
	c := len(b.items)
	for i := 0; i < b.size; i++ {
		out = append(out, b.items[(b.head+i)%c].Clone())
	}
	return out
}

func (b *Buffer) Latest() (models.Sample, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.size == 0 {
		return models.Sample{}, false
	}
	return b.items[(b.head+b.size-1)%len(b.items)].Clone(), true
}

// Last returns up to n of the newest samples, oldest first.
func (b *Buffer) Last(n int) []models.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.Sample, 0, n)
	c := len(b.items)
	for i := b.size - n; i < b.size; i++ {
		out = append(out, b.items[(b.head+i)%c].Clone())
	}
	return out
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

func (b *Buffer) Cap() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}

// Resize changes the capacity and immediately drops the oldest samples
// that no longer fit.
func (b *Buffer) Resize(capacity int) error {
	if capacity <= 0 {
		return models.ErrInvalidCapacity
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if capacity == len(b.items) {
		return nil
	}
	current := b.snapshotLocked()
	if len(current) > capacity {
		current = current[len(current)-capacity:]
	}
	b.items = make([]models.Sample, capacity)
	b.head = 0
	b.size = copy(b.items, current)
	return nil
}

// Replace swaps the content for samples, keeping the newest ones that fit.
func (b *Buffer) Replace(samples []models.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
	for _, s := range samples {
		b.appendLocked(s.Clone())
	}
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Buffer) resetLocked() {
	clear(b.items)
	b.head = 0
	b.size = 0
}
