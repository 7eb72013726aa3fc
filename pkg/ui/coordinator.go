package ui

import "sync"

// terminal serializes interactive operations so prompts from concurrent
// callers never interleave on the same terminal.
type terminal struct {
	mu sync.Mutex
}

// lock acquires exclusive access to the terminal. The returned function
// releases it and must be called once the interaction is complete.
func (t *terminal) lock() func() {
	t.mu.Lock()
	return t.mu.Unlock
}
