package changes

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Listener is called once per bulk change, after the change committed
type Listener func(ctx context.Context)

// Publisher is the sending side of a notifier
type Publisher interface {
	Notify(ctx context.Context)
}

// Notifier broadcasts the "data changed" signal to subscribed listeners and
// watch channels. It carries no payload: receivers re-read what they show.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
	watchers  map[int]chan struct{}
	logger    *zap.Logger
}

// NewNotifier creates a Notifier with no subscribers
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		listeners: make(map[int]Listener),
		watchers:  make(map[int]chan struct{}),
		logger:    logger,
	}
}

// Subscribe registers l and returns the function that removes it
func (n *Notifier) Subscribe(l Listener) (unsubscribe func()) {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = l
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners, id)
			n.mu.Unlock()
		})
	}
}

// Watch returns a channel that receives a value after each change. Signals
// that arrive while one is still unread are merged into it. cancel closes
// the channel.
func (n *Notifier) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.watchers[id] = ch
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.watchers, id)
			n.mu.Unlock()
			close(ch)
		})
	}
}

// Notify delivers the signal to every listener, in subscription order, and
// to every watch channel. Listeners run on the caller's goroutine.
func (n *Notifier) Notify(ctx context.Context) {
	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]Listener, len(ids))
	for i, id := range ids {
		listeners[i] = n.listeners[id]
	}
	for _, ch := range n.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	watchers := len(n.watchers)
	n.mu.Unlock()

	n.logger.Debug("data changed", zap.Int("listeners", len(listeners)), zap.Int("watchers", watchers))
	for _, l := range listeners {
		l(ctx)
	}
}
