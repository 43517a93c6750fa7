package progress

import "sync"

// Stream is a writer whose accumulated bytes can be drained without
// blocking. Tools write their stdout and stderr into it.
type Stream struct {
	mu  sync.Mutex
	buf []byte
}

// NewStream returns an empty stream.
func NewStream() *Stream { return &Stream{} }

func (s *Stream) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.buf = append(s.buf, p...)
	s.mu.Unlock()
	return len(p), nil
}

// Drain returns everything written since the previous call.
func (s *Stream) Drain() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buf) == 0 {
		return nil
	}
	out := s.buf
	s.buf = nil
	return out
}
