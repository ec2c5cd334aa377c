package sync

import (
	"context"
	gosync "sync"
)

// broadcaster хранит последнее значение и рассылает его подписчикам.
// Медленный подписчик получает только самое свежее значение.
type broadcaster[T any] struct {
	mu    gosync.Mutex
	value T
	subs  map[chan T]struct{}
}

func newBroadcaster[T any](initial T) *broadcaster[T] {
	return &broadcaster[T]{
		value: initial,
		subs:  make(map[chan T]struct{}),
	}
}

func (b *broadcaster[T]) Get() T {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.value
}

func (b *broadcaster[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = v
	for ch := range b.subs {
		replace(ch, v)
	}
}

// Update applies fn to the current value and publishes the result
func (b *broadcaster[T]) Update(fn func(v T) T) T {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = fn(b.value)
	for ch := range b.subs {
		replace(ch, b.value)
	}
	return b.value
}

// Subscribe returns a channel that immediately holds the current value.
// The channel is closed when ctx is done.
func (b *broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	b.mu.Lock()
	ch <- b.value
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// replace вытесняет непрочитанное значение новым
func replace[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
