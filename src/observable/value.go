package observable

import "sync"

/*
	Value is a latest-value cell which can be read at any moment (Get)
	or watched through subscriptions.
	Subscribers always get the newest value, stale ones are dropped
*/
type Value[T any] struct {
	mu     sync.RWMutex
	v      T
	subs   map[*Subscription[T]]struct{}
	closed bool
}

//Subscription delivers the values set after Subscribe was called
type Subscription[T any] struct {
	ch     chan T
	parent *Value[T]
}

//New creates the Value holding v
func New[T any](v T) *Value[T] {
	return &Value[T]{v: v, subs: map[*Subscription[T]]struct{}{}}
}

//Get returns the current value
func (o *Value[T]) Get() T {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.v
}

//Set stores v and notifies all subscribers
//the call never blocks: a subscriber which didn't read the previous value gets it replaced
func (o *Value[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.v = v
	for s := range o.subs {
		s.push(v)
	}
}

//Subscribe registers the new subscription
//the subscription of a closed Value has the closed channel
func (o *Value[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{ch: make(chan T, 1), parent: o}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		close(s.ch)
		return s
	}
	o.subs[s] = struct{}{}
	return s
}

//Close closes the channels of all subscriptions, further Set calls are ignored
func (o *Value[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	for s := range o.subs {
		close(s.ch)
	}
	o.subs = nil
}

//C returns the channel with the updates
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

//Unsubscribe detaches the subscription and closes its channel
func (s *Subscription[T]) Unsubscribe() {
	o := s.parent
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.subs[s]; !ok {
		return
	}
	delete(o.subs, s)
	close(s.ch)
}

//push must be called with the parent lock held
func (s *Subscription[T]) push(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}
	//drop the stale value
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}
