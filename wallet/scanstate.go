package wallet

import "sync"

// ScanState is the single abort/progress signal shared across a scan run:
// the caller calls Abort to ask the loop to stop issuing new decrypts and
// let in-flight work finish.
type ScanState struct {
	mu      sync.Mutex
	aborted bool
	done    chan struct{}
}

// NewScanState returns a fresh, unaborted ScanState.
func NewScanState() *ScanState {
	return &ScanState{done: make(chan struct{})}
}

// Abort requests the scan loop stop at its next opportunity. Safe to call
// more than once or concurrently with the scan loop.
func (s *ScanState) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return
	}
	s.aborted = true
	close(s.done)
}

// Aborted reports whether Abort has been called.
func (s *ScanState) Aborted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aborted
}

// Done returns a channel closed when Abort is called, for select loops
// that need to stop waiting on new events.
func (s *ScanState) Done() <-chan struct{} {
	return s.done
}
