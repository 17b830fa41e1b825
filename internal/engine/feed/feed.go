// Package feed provides an explicit observer registry for change notifications.
//
// A Feed delivers events to every subscribed observer in subscription order.
// Observers are always invoked outside the feed's lock, so an observer may
// subscribe, unsubscribe or publish again from within its callback.
//
// Delivery is serialized through a FIFO queue. Only one caller drains the
// queue at a time; events published while a delivery is running, from a
// nested observer or another goroutine, are appended and delivered by that
// caller after everything queued before them. Owners that guard state with
// their own lock call Enqueue while holding it, so queue order matches the
// order of their state changes, and Flush after releasing it.
package feed

import (
	"sync"
)

// Observer is called for every event published on a Feed.
type Observer[E any] func(event E)

// Subscription represents an active observer subscription.
type Subscription[E any] struct {
	id   uint64
	feed *Feed[E]
}

// Unsubscribe removes this subscription. Safe to call more than once.
func (s *Subscription[E]) Unsubscribe() {
	if s == nil || s.feed == nil {
		return
	}
	s.feed.unsubscribe(s.id)
	s.feed = nil
}

type entry[E any] struct {
	id       uint64
	observer Observer[E]
}

// Feed manages observer subscriptions for one event type.
// The zero value is ready to use.
type Feed[E any] struct {
	mu sync.Mutex

	observers []entry[E]
	nextID    uint64
	closed    bool

	// Delivery queue
	pending    []E
	delivering bool
}

// Subscribe registers an observer. A nil observer is ignored and yields a
// subscription whose Unsubscribe does nothing.
func (f *Feed[E]) Subscribe(observer Observer[E]) *Subscription[E] {
	if observer == nil {
		return &Subscription[E]{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return &Subscription[E]{}
	}

	id := f.nextID
	f.nextID++
	f.observers = append(f.observers, entry[E]{id: id, observer: observer})

	return &Subscription[E]{id: id, feed: f}
}

// Publish queues events and delivers them unless another delivery is in
// progress, in which case that delivery picks them up.
func (f *Feed[E]) Publish(events ...E) {
	f.Enqueue(events...)
	f.Flush()
}

// Enqueue appends events to the delivery queue without delivering them.
func (f *Feed[E]) Enqueue(events ...E) {
	if len(events) == 0 {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.pending = append(f.pending, events...)
}

// Flush delivers queued events in FIFO order. It returns at once if another
// caller is already delivering.
func (f *Feed[E]) Flush() {
	f.mu.Lock()
	if f.delivering {
		f.mu.Unlock()
		return
	}
	f.delivering = true
	f.mu.Unlock()

	drained := false
	defer func() {
		// An observer panicked; let the next caller deliver.
		if !drained {
			f.mu.Lock()
			f.delivering = false
			f.mu.Unlock()
		}
	}()

	for {
		ev, observers, ok := f.next()
		if !ok {
			drained = true
			return
		}
		for _, obs := range observers {
			obs(ev)
		}
	}
}

// next pops the oldest queued event together with the observers to call.
// When nothing is left it ends the delivery.
func (f *Feed[E]) next() (E, []Observer[E], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 || f.closed {
		var zero E
		f.pending = nil
		f.delivering = false
		return zero, nil, false
	}

	ev := f.pending[0]
	f.pending = f.pending[1:]
	observers := make([]Observer[E], len(f.observers))
	for i, e := range f.observers {
		observers[i] = e.observer
	}
	return ev, observers, true
}

// Len returns the number of active subscriptions.
func (f *Feed[E]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.observers)
}

// Close drops all subscriptions; later publishes are ignored.
// It is safe to call Close multiple times.
func (f *Feed[E]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	f.observers = nil
	f.pending = nil
}

func (f *Feed[E]) unsubscribe(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, e := range f.observers {
		if e.id == id {
			f.observers = append(f.observers[:i], f.observers[i+1:]...)
			return
		}
	}
}
