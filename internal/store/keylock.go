package store

import "sync"

// keyLocks serialises enrollments per storage key without serialising
// enrollments for different keys.
//
// Entries are never removed. One mutex is ~8 bytes plus map overhead, and the
// key space is bounded by the number of enrolled users.
type keyLocks struct {
	m sync.Map // map[string]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyLocks) lock(key string) (unlock func()) {
	v, _ := k.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
