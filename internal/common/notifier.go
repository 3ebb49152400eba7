package common

import "sync"

// Notifier fans events out to subscribers. Listeners run synchronously on the
// goroutine that calls Notify, in subscription order.
type Notifier[T any] struct {
	listeners map[int]func(T)
	order     []int
	next      int
	mu        sync.RWMutex
}

// Subscribe registers fn and returns a function that removes it.
func (n *Notifier[T]) Subscribe(fn func(T)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]func(T))
	}
	id := n.next
	n.next++
	n.listeners[id] = fn
	n.order = append(n.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier[T]) remove(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	delete(n.listeners, id)
	for i, v := range n.order {
		if v == id {
			n.order = append(n.order[:i], n.order[i+1:]...)
			break
		}
	}
}

// Notify delivers event to every current subscriber.
func (n *Notifier[T]) Notify(event T) {
	n.mu.RLock()
	fns := make([]func(T), 0, len(n.order))
	for _, id := range n.order {
		fns = append(fns, n.listeners[id])
	}
	n.mu.RUnlock()

	for _, fn := range fns {
		fn(event)
	}
}
