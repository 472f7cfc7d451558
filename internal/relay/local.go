package relay

import (
	"context"
	"sync"
)

// Local delivers envelopes in process. It backs single instance deployments
// and tests.
type Local struct {
	mu    sync.RWMutex
	next  int
	sinks map[int]Sink
}

// NewLocal creates an in-process relay
func NewLocal() *Local {
	return &Local{sinks: make(map[int]Sink)}
}

// Publish hands env to every sink synchronously
func (l *Local) Publish(ctx context.Context, env *Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.RLock()
	sinks := make([]Sink, 0, len(l.sinks))
	for _, s := range l.sinks {
		sinks = append(sinks, s)
	}
	l.mu.RUnlock()

	for _, s := range sinks {
		s.Deliver(env)
	}
	return nil
}

// Subscribe registers sink until stop is called or ctx is done
func (l *Local) Subscribe(ctx context.Context, sink Sink) (func() error, error) {
	if sink == nil {
		return nil, ErrNilSink
	}

	l.mu.Lock()
	id := l.next
	l.next++
	l.sinks[id] = sink
	l.mu.Unlock()

	var once sync.Once
	stop := func() error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.sinks, id)
			l.mu.Unlock()
		})
		return nil
	}

	go func() {
		<-ctx.Done()
		_ = stop()
	}()

	return stop, nil
}
