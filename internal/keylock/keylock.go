// Package keylock serializes work on named entities within a process.
package keylock

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out per-key mutexes. Keys are released once no goroutine
// holds or waits on them. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

// New creates a Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock acquires every key and returns a function releasing them. Keys are
// deduplicated and taken in sorted order, so overlapping key sets never
// deadlock.
func (l *Locker) Lock(keys ...string) (unlock func()) {
	sorted := dedupe(keys)
	held := make([]*entry, 0, len(sorted))
	for _, k := range sorted {
		e := l.acquire(k)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
				l.release(sorted[i])
			}
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*entry)
	}
	e, ok := l.locks[key]
	if !ok {
		e = &entry{}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// JobKey names the lock of a job.
func JobKey(id string) string { return "job:" + id }

// RoundKey names the lock of a round.
func RoundKey(id string) string { return "round:" + id }

// ProcessKey names the lock of a process.
func ProcessKey(id string) string { return "process:" + id }

// InterviewerKey names the lock of an interviewer's booking ledger.
func InterviewerKey(key string) string { return "interviewer:" + key }

// FinalCandidateKey names the lock of a job's final-candidate record.
func FinalCandidateKey(jobID string) string { return "final:" + jobID }
