package cos

import "sync"

// StopCh is a close-once signal channel, matching the teacher's own
// cos.StopCh used throughout transport/base.go for stop/abort/EOS
// semantics. Close is safe to call more than once.
type StopCh struct {
	ch   chan struct{}
	once sync.Once
}

func (s *StopCh) Init() { s.ch = make(chan struct{}) }

func (s *StopCh) Listen() <-chan struct{} { return s.ch }

func (s *StopCh) Close() { s.once.Do(func() { close(s.ch) }) }

func (s *StopCh) IsClosed() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
