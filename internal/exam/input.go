package exam

import "sync"

// Key is a directional input event.
type Key int

const (
	KeyLeft Key = iota + 1
	KeyRight
)

func (k Key) String() string {
	switch k {
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	default:
		return "unknown"
	}
}

// InputSource delivers key events to subscribers until they unsubscribe.
type InputSource interface {
	Subscribe(fn func(Key)) (unsubscribe func())
}

// binding is one installed input subscription. unsub is nil until Subscribe
// returns.
type binding struct {
	unsub func()
}

// Activate binds left/right input from src to Previous/Next. While a binding
// is installed further calls are no-ops; call Deactivate to switch sources.
// src.Subscribe runs without the store lock held, so a source may deliver
// keys from inside it.
func (s *Store) Activate(src InputSource) {
	b := &binding{}
	s.mu.Lock()
	if s.closed || s.input != nil {
		s.mu.Unlock()
		return
	}
	s.input = b
	s.mu.Unlock()

	unsub := src.Subscribe(s.handleKey)

	s.mu.Lock()
	if s.input != b {
		// Deactivated or closed while subscribing.
		s.mu.Unlock()
		unsub()
		return
	}
	b.unsub = unsub
	s.mu.Unlock()

	s.logger.Debug("keyboard navigation activated")
}

// Deactivate removes the input binding installed by Activate.
func (s *Store) Deactivate() {
	s.mu.Lock()
	b := s.input
	s.input = nil
	var unsub func()
	if b != nil {
		unsub = b.unsub
	}
	s.mu.Unlock()

	if unsub != nil {
		unsub()
		s.logger.Debug("keyboard navigation deactivated")
	}
}

// Active reports whether an input binding is installed.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input != nil
}

func (s *Store) handleKey(k Key) {
	switch k {
	case KeyLeft:
		s.Previous()
	case KeyRight:
		s.Next()
	}
}

// KeyBus is an InputSource that fans published keys out to its subscribers.
// The zero value is ready to use.
type KeyBus struct {
	mu     sync.Mutex
	subs   map[int]func(Key)
	nextID int
}

// Subscribe registers fn. The returned function removes it and is safe to
// call more than once.
func (b *KeyBus) Subscribe(fn func(Key)) func() {
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]func(Key))
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers k to every current subscriber.
func (b *KeyBus) Publish(k Key) {
	b.mu.Lock()
	fns := make([]func(Key), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(k)
	}
}

// Subscribers returns the number of registered subscribers.
func (b *KeyBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
