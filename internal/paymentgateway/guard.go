package paymentgateway

import "sync"

// SingleFlight admits at most one in-flight operation per key.
type SingleFlight struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewSingleFlight() *SingleFlight {
	return &SingleFlight{inflight: make(map[string]struct{})}
}

// TryAcquire claims key. The returned release func must be called exactly once when ok is true.
func (s *SingleFlight) TryAcquire(key string) (release func(), ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[key]; busy {
		return nil, false
	}
	s.inflight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
		})
	}, true
}

func (s *SingleFlight) Busy(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.inflight[key]
	return busy
}
