package relayconn

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FakeSocket is an in-memory socket usable by this package's own tests and
// by other packages (pool, publish, subscription) that need to drive a Conn
// without a real network connection. It is kept as exported, non-test code
// for the same reason net/http/httptest is: a reusable test double belongs
// next to the thing it doubles.
type FakeSocket struct {
	mu       sync.Mutex
	inbound  chan []byte
	outbound chan []byte
	closed   bool
}

// NewFakeSocket creates a fake socket with no buffered messages.
func NewFakeSocket() *FakeSocket {
	return &FakeSocket{
		inbound:  make(chan []byte, 64),
		outbound: make(chan []byte, 64),
	}
}

func (f *FakeSocket) ReadMessage() (int, []byte, error) {
	msg, ok := <-f.inbound
	if !ok {
		return 0, nil, errors.New("fake socket closed")
	}
	return 1, msg, nil
}

func (f *FakeSocket) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("fake socket closed")
	}
	select {
	case f.outbound <- data:
	default:
	}
	return nil
}

func (f *FakeSocket) SetReadDeadline(time.Time) error  { return nil }
func (f *FakeSocket) SetPongHandler(func(string) error) {}

func (f *FakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.inbound)
	return nil
}

// Push enqueues a raw frame as if it arrived from the relay.
func (f *FakeSocket) Push(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.inbound <- []byte(msg)
}

// Outbound returns the channel of frames the Conn has written.
func (f *FakeSocket) Outbound() <-chan []byte { return f.outbound }

// WithFakeDialer returns an Option that hands out the given fake sockets in
// order, one per connection attempt, so tests can script successive
// connect/reconnect cycles without a real network.
func WithFakeDialer(sockets ...*FakeSocket) Option {
	i := 0
	var mu sync.Mutex
	return WithDialer(func(ctx context.Context, url string) (socket, error) {
		mu.Lock()
		defer mu.Unlock()
		if i >= len(sockets) {
			return nil, errors.New("no more fake sockets")
		}
		s := sockets[i]
		i++
		return s, nil
	})
}
