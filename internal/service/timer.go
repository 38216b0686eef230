package service

import (
	"sync"
	"time"
)

type timerKind string

const (
	timerQuestion timerKind = "question" // time-up deadline for the current question
	timerAdvance  timerKind = "advance"  // grace delay before advancing
)

type timerKey struct {
	code  string
	index int
	kind  timerKind
}

// Scheduler owns the single-shot deferred callbacks of the game: the
// per-question time-up deadline and the post-answer grace advance. Timers are
// keyed by (session, question index, kind) so a superseded timer can always
// be cancelled, and callbacks must re-validate session state themselves since
// they run outside any request.
type Scheduler struct {
	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		timers: make(map[timerKey]*time.Timer),
	}
}

// Schedule arms fn to run after d, replacing any timer already armed for the
// same key.
func (s *Scheduler) Schedule(code string, index int, kind timerKind, d time.Duration, fn func()) {
	key := timerKey{code: code, index: index, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
	}
	s.timers[key] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

// Cancel disarms the timer for key, if still armed.
func (s *Scheduler) Cancel(code string, index int, kind timerKind) {
	key := timerKey{code: code, index: index, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// CancelSession disarms every timer belonging to a session.
func (s *Scheduler) CancelSession(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.timers {
		if key.code == code {
			t.Stop()
			delete(s.timers, key)
		}
	}
}
