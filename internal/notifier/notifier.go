// Package notifier wakes observers of the contact snapshot.
package notifier

import "sync"

// Notifier holds one wake-up channel per observer. Each channel has room
// for a single pending wake-up; further ones merge into it until the
// observer drains the channel and re-reads the snapshot.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
}

func New() *Notifier {
	return &Notifier{listeners: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new observer. Pair it with Unsubscribe.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners[ch] = struct{}{}
	return ch
}

// Unsubscribe drops ch and closes it. Calling it again, or with a channel
// this notifier did not hand out, does nothing.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	_, known := n.listeners[ch]
	delete(n.listeners, ch)
	n.mu.Unlock()
	if known {
		close(ch)
	}
}

// Broadcast wakes every observer. It never waits on a slow one.
func (n *Notifier) Broadcast() {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Len is the number of registered observers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}
