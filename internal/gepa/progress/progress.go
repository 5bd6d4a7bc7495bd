// Package progress provides run-progress pub/sub for gepa.Engine, letting
// a caller (CLI progress bar, HTTP SSE/WebSocket handler) observe a run
// without coupling the engine itself to any particular transport.
package progress

import "sync"

// Event is one iteration's worth of run progress.
type Event struct {
	Iteration    int
	TotalEvals   int
	BestScore    float64
	NumPrograms  int
	AcceptedTag  string // "reflective", "merge", or "" if nothing was accepted this iteration
	Message      string
}

// Publisher fans one run's events out to any number of subscribers.
// Publishing is non-blocking: a subscriber whose buffer is full misses the
// event rather than stalling the run.
type Publisher struct {
	mu       sync.RWMutex
	channels []chan Event
}

// NewPublisher returns an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe returns a new buffered channel that receives every future
// Publish call's event, until Unsubscribe or Close.
func (p *Publisher) Subscribe() <-chan Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Event, 64)
	p.channels = append(p.channels, ch)
	return ch
}

// Unsubscribe removes and closes a channel previously returned by
// Subscribe. It's a no-op if ch is not currently subscribed.
func (p *Publisher) Unsubscribe(ch <-chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.channels {
		if c == ch {
			p.channels = append(p.channels[:i], p.channels[i+1:]...)
			close(c)
			return
		}
	}
}

// Publish sends event to every current subscriber without blocking.
func (p *Publisher) Publish(event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.channels {
		select {
		case ch <- event:
		default:
		}
	}
}

// Close closes every subscriber channel and clears the subscriber list.
// Call once the run has finished.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.channels {
		close(ch)
	}
	p.channels = nil
}

// SubscriberCount returns the number of active subscribers.
func (p *Publisher) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels)
}
